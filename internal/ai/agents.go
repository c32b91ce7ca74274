package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/steveyegge/slogan-gen/internal/iterative"
)

const writerPrompt = `You are a creative slogan writer for marketing campaigns.

Your role:
- Generate catchy, memorable slogans based on the user's product/service description
- Incorporate any feedback from the reviewer to improve your slogans
- Be creative, concise, and impactful
- Keep slogans under 100 characters when possible
- Focus on emotional appeal and memorability

When you receive feedback, carefully revise your slogan to address the reviewer's concerns while maintaining creativity.

Output only the slogan text, nothing else.`

const reviewerPrompt = `You are a marketing slogan reviewer with high standards.

Your role:
- Evaluate slogans for creativity, clarity, and marketing effectiveness
- Provide specific, constructive feedback to help improve slogans
- Approve excellent slogans ONLY when they meet all criteria
- Be critical but fair - only approve truly great slogans

Evaluation criteria:
- Is it memorable and catchy?
- Does it clearly relate to the product/service?
- Is it concise and impactful?
- Does it have emotional appeal?
- Is it unique and creative?

CRITICAL RESPONSE RULES:
1. If the slogan needs ANY improvement: Provide ONLY feedback. Do NOT include %[1]q anywhere.
2. If the slogan is truly excellent and meets ALL criteria: Respond with ONLY %[1]q (nothing else).
3. NEVER mix feedback with approval - choose one or the other.

Examples:
BAD: "This is good but could be better... %[1]s"
GOOD (needs work): "Make it more specific. 'Cloud power' is vague - what kind of power?"
GOOD (approved): %[1]q

Be thorough in your review. Don't approve mediocre slogans.`

// Writer is the producer capability: it drafts and revises slogans.
type Writer struct {
	client *Client
	model  string
}

// NewWriter creates a Writer. An empty model uses the client default.
func NewWriter(client *Client, model string) *Writer {
	return &Writer{client: client, model: model}
}

// Generate implements iterative.Capability. The prompt replays every prior
// turn as an assistant draft followed by the reviewer's feedback.
func (w *Writer) Generate(ctx context.Context, req iterative.CapabilityRequest) (string, error) {
	messages := make([]Message, 0, 2*len(req.History)+1)
	messages = append(messages, Message{Role: MessageUser, Content: "Create a slogan for: " + req.Request})
	for _, turn := range req.History {
		messages = append(messages,
			Message{Role: MessageAssistant, Content: turn.Artifact()},
			Message{Role: MessageUser, Content: fmt.Sprintf(
				"Feedback: %s\n\nCreate an improved slogan for: %s", turn.Critique(), req.Request)},
		)
	}

	text, err := w.client.Chat(ctx, w.model, writerPrompt, messages)
	if err != nil {
		return "", err
	}
	return cleanSlogan(text), nil
}

// Reviewer is the critic capability: it judges a single draft.
type Reviewer struct {
	client *Client
	model  string
	system string
	phrase string
}

// NewReviewer creates a Reviewer that asks for approvalPhrase verbatim.
// An empty model uses the client default.
func NewReviewer(client *Client, model, approvalPhrase string) *Reviewer {
	phrase := strings.ToUpper(strings.TrimSpace(approvalPhrase))
	if phrase == "" {
		phrase = strings.ToUpper(iterative.DefaultApprovalPhrase)
	}
	if phrase == strings.ToUpper(iterative.DefaultApprovalPhrase) {
		phrase += "!"
	}
	return &Reviewer{
		client: client,
		model:  model,
		system: fmt.Sprintf(reviewerPrompt, phrase),
		phrase: phrase,
	}
}

// Generate implements iterative.Capability.
func (r *Reviewer) Generate(ctx context.Context, req iterative.CapabilityRequest) (string, error) {
	prompt := fmt.Sprintf("Review this slogan for '%s':\n\nSlogan: %s\n\nProvide feedback or approve with '%s'",
		req.Request, req.Artifact, r.phrase)

	text, err := r.client.Chat(ctx, r.model, r.system, []Message{{Role: MessageUser, Content: prompt}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// cleanSlogan strips whitespace and one layer of wrapping quotes, which
// small models often add despite instructions.
func cleanSlogan(text string) string {
	s := strings.TrimSpace(text)
	for _, q := range [][2]string{{`"`, `"`}, {"'", "'"}, {"\u201c", "\u201d"}} {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}

var (
	_ iterative.Capability = (*Writer)(nil)
	_ iterative.Capability = (*Reviewer)(nil)
)
