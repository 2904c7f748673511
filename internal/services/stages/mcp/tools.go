package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/gamestages/internal/gateway"
	"github.com/louisbranch/gamestages/internal/stage"
	"github.com/louisbranch/gamestages/internal/storage"
)

// SubjectInput names the identity a tool acts on. Exactly one of account_id
// or actor_name must be set: account IDs address durable records, actor names
// address ephemeral ones.
type SubjectInput struct {
	AccountID   string `json:"account_id,omitempty" jsonschema:"stable account ID of a persistent identity"`
	ActorName   string `json:"actor_name,omitempty" jsonschema:"display name of an ephemeral actor"`
	DisplayName string `json:"display_name,omitempty" jsonschema:"optional display name for logs on persistent identities"`
}

// Identity resolves the input to a domain identity.
func (s SubjectInput) Identity() (stage.Identity, error) {
	switch {
	case s.AccountID != "" && s.ActorName != "":
		return stage.Identity{}, fmt.Errorf("account_id and actor_name are mutually exclusive")
	case s.AccountID != "":
		return stage.PersistentIdentity(s.AccountID, s.DisplayName), nil
	case s.ActorName != "":
		return stage.EphemeralIdentity(s.ActorName), nil
	default:
		return stage.Identity{}, fmt.Errorf("account_id or actor_name is required")
	}
}

// CheckInput represents the MCP tool input for a stage check.
type CheckInput struct {
	SubjectInput
	Stage string `json:"stage" jsonschema:"stage name to check"`
}

// CheckResult represents the MCP tool output for a stage check.
type CheckResult struct {
	Stage string `json:"stage" jsonschema:"stage name checked"`
	Has   bool   `json:"has" jsonschema:"whether the identity holds the stage"`
	Known bool   `json:"known" jsonschema:"whether the stage is in the known registry"`
}

// MutateInput represents the MCP tool input for a stage grant or revocation.
type MutateInput struct {
	SubjectInput
	Stage string `json:"stage" jsonschema:"stage name to grant or revoke"`
}

// MutateResult represents the MCP tool output for a stage grant or revocation.
type MutateResult struct {
	Stage   string `json:"stage" jsonschema:"stage name acted on"`
	Outcome string `json:"outcome" jsonschema:"mutation outcome (applied, rejected, or noop)"`
	Known   bool   `json:"known" jsonschema:"whether the stage is in the known registry"`
}

// ClearInput represents the MCP tool input for clearing a record.
type ClearInput struct {
	SubjectInput
}

// ClearResult represents the MCP tool output for clearing a record.
type ClearResult struct {
	Removed int `json:"removed" jsonschema:"number of stages the record previously held"`
}

// BatchCheckInput represents the MCP tool input for any-of / all-of checks.
type BatchCheckInput struct {
	SubjectInput
	Stages []string `json:"stages" jsonschema:"stage names to check"`
}

// BatchCheckResult represents the MCP tool output for any-of / all-of checks.
type BatchCheckResult struct {
	Stages []string `json:"stages" jsonschema:"stage names checked"`
	Result bool     `json:"result" jsonschema:"combined check result"`
}

// ListInput represents the MCP tool input for listing a record's stages.
type ListInput struct {
	SubjectInput
}

// ListResult represents the MCP tool output for listing a record's stages.
type ListResult struct {
	Stages []string `json:"stages" jsonschema:"sorted stage names the identity holds"`
}

// JournalInput represents the MCP tool input for reading the mutation
// journal.
type JournalInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return, newest first"`
}

// JournalEntry represents one committed mutation in MCP tool output.
type JournalEntry struct {
	OccurredAt   string `json:"occurred_at" jsonschema:"RFC 3339 timestamp of the mutation"`
	Type         string `json:"type" jsonschema:"event type committed"`
	IdentityKind string `json:"identity_kind" jsonschema:"identity variant"`
	IdentityKey  string `json:"identity_key" jsonschema:"identity lookup key"`
	Stage        string `json:"stage,omitempty" jsonschema:"stage name, empty for clears"`
	Count        int    `json:"count,omitempty" jsonschema:"stages removed, set for clears"`
}

// JournalResult represents the MCP tool output for reading the journal.
type JournalResult struct {
	Entries []JournalEntry `json:"entries" jsonschema:"journal entries, newest first"`
}

// KnownStagesInput represents the MCP tool input for the known registry.
type KnownStagesInput struct{}

// KnownStagesResult represents the MCP tool output for the known registry.
type KnownStagesResult struct {
	Stages []string `json:"stages" jsonschema:"sorted names of every known stage"`
}

// CheckTool describes the stage_check tool.
func CheckTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_check",
		Description: "Checks whether an identity holds a gameplay stage",
	}
}

// AddTool describes the stage_add tool.
func AddTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_add",
		Description: "Grants a gameplay stage to an identity",
	}
}

// RemoveTool describes the stage_remove tool.
func RemoveTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_remove",
		Description: "Revokes a gameplay stage from an identity",
	}
}

// ClearTool describes the stage_clear tool.
func ClearTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_clear",
		Description: "Removes every stage from an identity's record",
	}
}

// AnyOfTool describes the stage_any_of tool.
func AnyOfTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_any_of",
		Description: "Checks whether an identity holds at least one of the stages",
	}
}

// AllOfTool describes the stage_all_of tool.
func AllOfTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_all_of",
		Description: "Checks whether an identity holds every one of the stages",
	}
}

// ListTool describes the stage_list tool.
func ListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_list",
		Description: "Lists the stages an identity currently holds",
	}
}

// JournalTool describes the stage_journal tool.
func JournalTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "stage_journal",
		Description: "Reads recent committed stage mutations, newest first",
	}
}

// KnownStagesTool describes the known_stages tool.
func KnownStagesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "known_stages",
		Description: "Lists every stage name registered with this instance",
	}
}

func validStageName(raw string) (stage.Name, error) {
	name := stage.Name(raw)
	if !name.IsValid() {
		return "", fmt.Errorf("invalid stage name %q: only a-z, 0-9, _ and : are allowed", raw)
	}
	return name, nil
}

func validStageNames(raw []string) ([]stage.Name, error) {
	names := make([]stage.Name, 0, len(raw))
	for _, entry := range raw {
		name, err := validStageName(entry)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func stageStrings(names []stage.Name) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, string(name))
	}
	return out
}

// CheckHandler runs a single stage check through the gateway.
func CheckHandler(gw *gateway.Gateway, known *storage.KnownStages) mcp.ToolHandlerFor[CheckInput, CheckResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CheckInput) (*mcp.CallToolResult, CheckResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, CheckResult{}, err
		}
		name, err := validStageName(input.Stage)
		if err != nil {
			return nil, CheckResult{}, err
		}
		return nil, CheckResult{
			Stage: input.Stage,
			Has:   gw.HasStage(ctx, identity, name),
			Known: known.IsKnown(name),
		}, nil
	}
}

// AddHandler grants a stage through the gateway.
func AddHandler(gw *gateway.Gateway, known *storage.KnownStages) mcp.ToolHandlerFor[MutateInput, MutateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MutateInput) (*mcp.CallToolResult, MutateResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, MutateResult{}, err
		}
		name, err := validStageName(input.Stage)
		if err != nil {
			return nil, MutateResult{}, err
		}
		outcome, err := gw.AddStage(ctx, identity, name)
		if err != nil {
			return nil, MutateResult{}, fmt.Errorf("add stage %s: %w", name, err)
		}
		return nil, MutateResult{
			Stage:   input.Stage,
			Outcome: outcome.String(),
			Known:   known.IsKnown(name),
		}, nil
	}
}

// RemoveHandler revokes a stage through the gateway.
func RemoveHandler(gw *gateway.Gateway, known *storage.KnownStages) mcp.ToolHandlerFor[MutateInput, MutateResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input MutateInput) (*mcp.CallToolResult, MutateResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, MutateResult{}, err
		}
		name, err := validStageName(input.Stage)
		if err != nil {
			return nil, MutateResult{}, err
		}
		outcome, err := gw.RemoveStage(ctx, identity, name)
		if err != nil {
			return nil, MutateResult{}, fmt.Errorf("remove stage %s: %w", name, err)
		}
		return nil, MutateResult{
			Stage:   input.Stage,
			Outcome: outcome.String(),
			Known:   known.IsKnown(name),
		}, nil
	}
}

// ClearHandler empties an identity's record through the gateway.
func ClearHandler(gw *gateway.Gateway) mcp.ToolHandlerFor[ClearInput, ClearResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ClearInput) (*mcp.CallToolResult, ClearResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, ClearResult{}, err
		}
		removed, err := gw.ClearStages(ctx, identity)
		if err != nil {
			return nil, ClearResult{}, fmt.Errorf("clear stages: %w", err)
		}
		return nil, ClearResult{Removed: removed}, nil
	}
}

// AnyOfHandler checks whether the identity holds at least one of the stages.
func AnyOfHandler(gw *gateway.Gateway) mcp.ToolHandlerFor[BatchCheckInput, BatchCheckResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input BatchCheckInput) (*mcp.CallToolResult, BatchCheckResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, BatchCheckResult{}, err
		}
		names, err := validStageNames(input.Stages)
		if err != nil {
			return nil, BatchCheckResult{}, err
		}
		return nil, BatchCheckResult{
			Stages: input.Stages,
			Result: gw.AnyOf(ctx, identity, names),
		}, nil
	}
}

// AllOfHandler checks whether the identity holds every one of the stages.
func AllOfHandler(gw *gateway.Gateway) mcp.ToolHandlerFor[BatchCheckInput, BatchCheckResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input BatchCheckInput) (*mcp.CallToolResult, BatchCheckResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, BatchCheckResult{}, err
		}
		names, err := validStageNames(input.Stages)
		if err != nil {
			return nil, BatchCheckResult{}, err
		}
		return nil, BatchCheckResult{
			Stages: input.Stages,
			Result: gw.AllOf(ctx, identity, names),
		}, nil
	}
}

// ListHandler lists the identity's current stages.
func ListHandler(gw *gateway.Gateway) mcp.ToolHandlerFor[ListInput, ListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (*mcp.CallToolResult, ListResult, error) {
		identity, err := input.Identity()
		if err != nil {
			return nil, ListResult{}, err
		}
		return nil, ListResult{Stages: stageStrings(gw.Stages(ctx, identity))}, nil
	}
}

// JournalReader reads committed mutations, newest first.
type JournalReader interface {
	JournalEntries(ctx context.Context, limit int) ([]storage.JournalEntry, error)
}

// JournalHandler reads recent entries from the mutation journal.
func JournalHandler(reader JournalReader) mcp.ToolHandlerFor[JournalInput, JournalResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input JournalInput) (*mcp.CallToolResult, JournalResult, error) {
		entries, err := reader.JournalEntries(ctx, input.Limit)
		if err != nil {
			return nil, JournalResult{}, fmt.Errorf("read journal: %w", err)
		}
		out := make([]JournalEntry, 0, len(entries))
		for _, entry := range entries {
			out = append(out, JournalEntry{
				OccurredAt:   entry.OccurredAt,
				Type:         entry.Type,
				IdentityKind: entry.IdentityKind,
				IdentityKey:  entry.IdentityKey,
				Stage:        entry.Stage,
				Count:        entry.Count,
			})
		}
		return nil, JournalResult{Entries: out}, nil
	}
}

// KnownStagesHandler lists the known stage registry.
func KnownStagesHandler(known *storage.KnownStages) mcp.ToolHandlerFor[KnownStagesInput, KnownStagesResult] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ KnownStagesInput) (*mcp.CallToolResult, KnownStagesResult, error) {
		return nil, KnownStagesResult{Stages: stageStrings(known.Stages())}, nil
	}
}
