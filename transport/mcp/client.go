package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/klondike/game/engine"
	"github.com/wricardo/klondike/game/service"
)

const (
	serverName    = "Klondike Solitaire"
	serverVersion = "1.0.0"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			// auto_solve waits for the whole run
			Timeout: 2 * time.Minute,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Klondike Solitaire - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GOAL:
Build all four foundations from Ace to King, one suit each.

NOTATION:
Cards are rank then suit letter: AS, 10H, QC, KD.
Piles are tableau-0 .. tableau-6, foundation-spades|clubs|hearts|diamonds, stock, waste.

AVAILABLE TOOLS:
- create_session / list_sessions / get_session: manage games
- game_state: the table, with face-down cards shown as ##
- new_deal: shuffle and deal again (optionally seeded)
- move: move a card (and the cards on top of it) between piles
- auto_move: send a card to its foundation
- draw / reset_deck: work through the stock
- undo: revert the last action
- hints: list every legal action
- auto_solve: finish a game once every card is face up
- move_history: the action log
- list_configs: rule presets
- game_instructions: full rules`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func numberProp(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

var sessionProp = stringProp("Session ID")

func sessionOnly() mcp.ToolInputSchema {
	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]any{"session_id": sessionProp},
		Required:   []string{"session_id"},
	}
}

func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session and deal the first game",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config_id": stringProp("Rule preset to use (optional, see list_configs)"),
				"draw_mode": map[string]any{
					"type":        "string",
					"enum":        []string{"single", "triple"},
					"description": "Override the preset's draw mode",
				},
				"seed": numberProp("Deal a specific, reproducible game"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: sessionOnly(),
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Show the table: stock, waste, foundations and the seven tableau columns",
		InputSchema: sessionOnly(),
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "new_deal",
		Description: "Shuffle and deal a new game in the session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp,
				"draw_mode": map[string]any{
					"type":        "string",
					"enum":        []string{"single", "triple"},
					"description": "Draw mode for the new game (defaults to the current one)",
				},
				"seed": numberProp("Deal a specific, reproducible game"),
			},
			Required: []string{"session_id"},
		},
	}, c.handleNewDeal)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Move a face-up card, and every card on top of it, to another pile",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp,
				"card":       stringProp("Card to move, e.g. QH or 10S"),
				"from":       stringProp("Pile the card is in, e.g. tableau-3 or waste"),
				"to":         stringProp("Destination pile, e.g. tableau-5 or foundation-hearts"),
				"intent":     stringProp("Brief explanation of why you are making this move"),
			},
			Required: []string{"session_id", "card", "from", "to"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "auto_move",
		Description: "Send a card to its suit's foundation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp,
				"card":       stringProp("Card to send home, e.g. AS"),
				"from":       stringProp("Pile the card is on top of"),
			},
			Required: []string{"session_id", "card", "from"},
		},
	}, c.handleAutoMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "draw",
		Description: "Turn one or three cards from the stock onto the waste",
		InputSchema: sessionOnly(),
	}, c.handleDraw)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_deck",
		Description: "Turn the waste back over into the stock once the stock is empty",
		InputSchema: sessionOnly(),
	}, c.handleResetDeck)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "undo",
		Description: "Revert the last move, draw or reset",
		InputSchema: sessionOnly(),
	}, c.handleUndo)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hints",
		Description: "List every legal action, foundation moves first",
		InputSchema: sessionOnly(),
	}, c.handleHints)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "auto_solve",
		Description: "Finish the game automatically once the stock is empty and every card is face up",
		InputSchema: sessionOnly(),
	}, c.handleAutoSolve)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Show the action log with pagination",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"session_id": sessionProp,
				"page":       numberProp("Page number (default 1)"),
				"limit":      numberProp("Entries per page (default 20, max 100)"),
				"order": map[string]any{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest or newest first (default desc)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	// Configuration
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List the available rule presets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get the full rules of Klondike as played here",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// arguments returns the tool arguments; missing arguments read as an empty map
func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// seedArg accepts a JSON number or a numeric string
func seedArg(args map[string]any) (uint64, error) {
	switch v := args["seed"].(type) {
	case nil:
		return 0, nil
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("seed must be positive")
		}
		return uint64(v), nil
	case string:
		if v == "" {
			return 0, nil
		}
		return strconv.ParseUint(v, 10, 64)
	}
	return 0, fmt.Errorf("seed must be a number")
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	seed, err := seedArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := service.CreateSessionRequest{
		ConfigID: stringArg(args, "config_id"),
		DrawMode: stringArg(args, "draw_mode"),
		Seed:     seed,
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created " + formatSessionInfo(&session)), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionList(response.Count, response.Sessions)), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var state engine.State
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleNewDeal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	seed, err := seedArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body := service.DealRequest{DrawMode: stringArg(args, "draw_mode"), Seed: seed}
	return c.action(ctx, stringArg(args, "session_id"), "/deal", body)
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	// intent is for the caller's own reasoning and is not sent
	body := service.MoveRequest{
		Card: stringArg(args, "card"),
		From: stringArg(args, "from"),
		To:   stringArg(args, "to"),
	}
	return c.action(ctx, stringArg(args, "session_id"), "/move", body)
}

func (c *Client) handleAutoMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := service.MoveRequest{
		Card: stringArg(args, "card"),
		From: stringArg(args, "from"),
	}
	return c.action(ctx, stringArg(args, "session_id"), "/auto-move", body)
}

func (c *Client) handleDraw(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, stringArg(arguments(request), "session_id"), "/draw", nil)
}

func (c *Client) handleResetDeck(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, stringArg(arguments(request), "session_id"), "/reset-deck", nil)
}

func (c *Client) handleUndo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.action(ctx, stringArg(arguments(request), "session_id"), "/undo", nil)
}

// action posts a state-changing request and renders the ActionResult
func (c *Client) action(ctx context.Context, sessionID, suffix string, body any) (*mcp.CallToolResult, error) {
	var result service.ActionResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, suffix), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatActionResult(&result)), nil
}

func (c *Client) handleHints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var response struct {
		Count int           `json:"count"`
		Hints []engine.Hint `json:"hints"`
	}
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/hints"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHints(response.Hints)), nil
}

func (c *Client) handleAutoSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := stringArg(arguments(request), "session_id")

	var raw json.RawMessage
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/auto-solve?wait=true"), nil, &raw); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// the server answers with a plain message when the game is not ready
	var notStarted struct {
		Started *bool  `json:"started"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &notStarted); err == nil && notStarted.Started != nil && !*notStarted.Started {
		return mcp.NewToolResultText(notStarted.Message), nil
	}

	var result service.AutoSolveResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAutoSolve(&result)), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID := stringArg(args, "session_id")

	params := url.Values{}
	if page, ok := args["page"].(float64); ok {
		params.Set("page", strconv.Itoa(int(page)))
	}
	if limit, ok := args["limit"].(float64); ok {
		params.Set("limit", strconv.Itoa(int(limit)))
	}
	if order := stringArg(args, "order"); order != "" {
		params.Set("order", order)
	}

	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatConfigs(configs)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Klondike Solitaire - Rules

SETUP:
52 cards are dealt into seven tableau columns. Column N holds N+1 cards with only
the top one face up. The remaining 24 cards form the stock.

GOAL:
Move every card to the four foundations, one per suit, building up from Ace to King.

MOVES:
- Foundation: a card goes on its own suit's foundation if it is exactly one rank
  higher than the top card. Only Aces start an empty foundation. Only single cards
  move to a foundation.
- Tableau: a card goes on a column if it is one rank lower and the opposite color
  (red on black, black on red). Only Kings start an empty column.
- Runs: a face-up card moves together with every card on top of it, as long as
  those cards form an alternating descending run.
- Waste and foundation cards move one at a time, from the top.
- When a column's top face-down card is uncovered it turns face up.

STOCK:
- draw turns one card (single mode) or three cards (triple mode) onto the waste.
- When the stock is empty, reset_deck turns the waste back over into the stock.
  There is no limit on passes.

UNDO:
Every move, draw and reset can be undone, newest first, back to the deal.

AUTO-SOLVE:
Once the stock is empty, at most one card remains in the waste and every tableau
card is face up, the game can finish itself. auto_solve moves cards to the
foundations, lowest rank first, until the game is won. If it gets stuck it hands
control back to you.

NOTATION:
Cards: AS 2H 10C JD QS KH (rank then suit letter; T may stand for 10).
Piles: tableau-0 .. tableau-6, foundation-spades, foundation-clubs,
foundation-hearts, foundation-diamonds, stock, waste.

STRATEGY:
- Ask for hints; foundation moves are listed first.
- Prefer moves that turn a face-down card.
- Keep an empty column for a King that uncovers something.`
