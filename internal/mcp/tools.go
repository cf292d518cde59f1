package mcp

import "github.com/mark3labs/mcp-go/mcp"

var accountLookupTool = mcp.NewTool("account_lookup",
	mcp.WithDescription("Look up a CultPass member account by email. Returns user id, name and blocked status."),
	mcp.WithString("email",
		mcp.Required(),
		mcp.Description("Member email address (case-insensitive)"),
	),
)

var subscriptionStatusTool = mcp.NewTool("subscription_status",
	mcp.WithDescription("Get the latest subscription for a member, identified by user id or email."),
	mcp.WithString("user_id",
		mcp.Description("Member user id, e.g. u_1001"),
	),
	mcp.WithString("email",
		mcp.Description("Member email address, used when user_id is empty"),
	),
)

var reservationLookupTool = mcp.NewTool("reservation_lookup",
	mcp.WithDescription("List a member's most recent reservations, newest first."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Member user id"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of reservations (default 5, max 50)"),
	),
)

var retrieveKnowledgeTool = mcp.NewTool("retrieve_knowledge",
	mcp.WithDescription("Search the support knowledge base. Returns the best matching articles."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("k",
		mcp.Description("Number of articles to return (default 4, max 10)"),
	),
)

var triageTicketTool = mcp.NewTool("triage_ticket",
	mcp.WithDescription("Classify, route and answer a support ticket. Returns the reply plus the classification and routing decision."),
	mcp.WithString("ticket_text",
		mcp.Required(),
		mcp.Description("The customer's message"),
	),
	mcp.WithString("thread_id",
		mcp.Description("Conversation thread id; a new one is generated when empty"),
	),
	mcp.WithObject("metadata",
		mcp.Description("Optional ticket metadata such as channel or account email"),
	),
)
