// Package prompt assembles the (system, user) prompt pairs consumed by the
// execution engine's nodes, generalizing the teacher's buildSystemPrompt/
// buildUserPrompt pair into a small set of named templates sharing one
// fixed user-text block order.
package prompt

import (
	"fmt"
	"strings"

	"github.com/paperrag/agent/internal/model"
)

// Template names one of the fixed system prompts a node may request.
type Template string

const (
	TemplateAnswer     Template = "answer"
	TemplateOutOfScope Template = "out_of_scope"
	TemplateRouter     Template = "router"
	TemplateGuardrail  Template = "guardrail"
	TemplateGrader     Template = "grader"
	TemplateRewriter   Template = "rewriter"
)

const maxConversationLineChars = 500

var systemPrompts = map[Template]string{
	TemplateAnswer: `You are a research assistant answering questions about a corpus of arXiv papers.
Only use the retrieved context to answer. Never speculate beyond it.
Cite papers inline as [arxiv_id] where relevant.
If the context is insufficient, say so explicitly rather than guessing.`,

	TemplateOutOfScope: `You are a research assistant scoped to questions about a corpus of arXiv papers.
The user's message falls outside that scope. Respond with a short, polite
redirection explaining you can only help with questions about the paper corpus.
Do not attempt to answer the off-topic request.`,

	TemplateRouter: `You decide the next action for a research-paper question-answering agent.
Given the current query, conversation so far, and the tools available, decide
whether to call a tool or generate the final answer now.
Respond with JSON: {"next_tool": string|null, "tool_args": object|null, "rationale": string, "should_generate": bool}.`,

	TemplateGuardrail: `You screen incoming queries for a research-paper question-answering agent.
Score how likely the query is an in-scope question about the paper corpus.
Respond with JSON: {"score": 0-100, "reasoning": string}.`,

	TemplateGrader: `You judge whether each retrieved passage below is materially relevant to a question.
The passages are numbered in the order they appear under RETRIEVED CONTEXT, starting at 0.
Respond with JSON: {"results": [{"index": int, "relevant": bool, "reason": string}, ...]},
with exactly one entry per passage, in any order.`,

	TemplateRewriter: `You reformulate a search query to retrieve better results from a corpus of
arXiv papers, given the original query and why prior retrieval fell short.
Respond with JSON: {"rewritten_query": string, "reason": string}.`,
}

// Opts holds the building blocks assembled into user text, in fixed order:
// conversation, retrieved context, query, notes.
type Opts struct {
	ConversationHistory []model.Message
	ConversationWindow  int // messages kept = window*2; 0 means use len(ConversationHistory)
	Chunks              []model.Chunk
	Query               string
	QueryLabel          string // defaults to "Question"
	Notes               []string
}

// Composer builds (system, user) prompt pairs from named templates.
type Composer struct{}

// NewComposer creates a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Compose returns the fixed system prompt for tmpl and a deterministic user
// prompt built from opts. Same inputs always produce the same strings.
func (c *Composer) Compose(tmpl Template, opts Opts) (systemText, userText string) {
	systemText = systemPrompts[tmpl]

	var sb strings.Builder

	if convo := conversationBlock(opts.ConversationHistory, opts.ConversationWindow); convo != "" {
		sb.WriteString(convo)
		sb.WriteString("\n\n")
	}

	if ctx := contextBlock(opts.Chunks); ctx != "" {
		sb.WriteString(ctx)
		sb.WriteString("\n\n")
	}

	label := opts.QueryLabel
	if label == "" {
		label = "Question"
	}
	sb.WriteString(fmt.Sprintf("%s: %s", label, opts.Query))

	if len(opts.Notes) > 0 {
		sb.WriteString("\n\n")
		for i, n := range opts.Notes {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(n)
		}
	}

	return systemText, sb.String()
}

func conversationBlock(history []model.Message, window int) string {
	if len(history) == 0 {
		return ""
	}
	msgs := history
	if window > 0 && len(msgs) > window*2 {
		msgs = msgs[len(msgs)-window*2:]
	}

	var sb strings.Builder
	sb.WriteString("=== CONVERSATION ===")
	for _, m := range msgs {
		label := "User"
		if m.Role == "assistant" {
			label = "Assistant"
		}
		content := m.Content
		if len(content) > maxConversationLineChars {
			content = content[:maxConversationLineChars]
		}
		sb.WriteString(fmt.Sprintf("\n%s: %s", label, content))
	}
	return sb.String()
}

func contextBlock(chunks []model.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("=== RETRIEVED CONTEXT ===\n")
	for i, ch := range chunks {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(fmt.Sprintf("[%s] %s\n%s", ch.ArxivID, ch.PaperTitle, ch.Text))
	}
	return sb.String()
}
