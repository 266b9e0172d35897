// Package chat routes editor chat messages: slash commands act on the
// project, everything else goes to a chat model.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/transcut/internal/domain/transcript"
	"github.com/forPelevin/transcut/internal/ports"
	"github.com/forPelevin/transcut/internal/project"
	"github.com/forPelevin/transcut/internal/types"
	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Config struct {
	Project *project.Project
	// Model may be nil; plain messages then get an error reply.
	Model ports.ChatModel
	Logf  func(format string, args ...any)
	Now   func() time.Time
}

type Router struct {
	p     *project.Project
	model ports.ChatModel
	logf  func(string, ...any)
	now   func() time.Time
}

func NewRouter(cfg Config) *Router {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Router{p: cfg.Project, model: cfg.Model, logf: logf, now: now}
}

// Send records prompt as a user message and returns the assistant reply,
// which is recorded too. selectedMediaID scopes commands such as /find.
// Errors from the chat model are returned after an error reply is recorded.
func (r *Router) Send(ctx context.Context, selectedMediaID, prompt string) (types.ChatMessage, error) {
	history := r.p.Chat()
	r.p.AppendChat(r.message(RoleUser, prompt))

	if strings.HasPrefix(prompt, "/") {
		cmd, args, _ := strings.Cut(prompt, " ")
		if cmd == "/find" {
			return r.reply(r.find(selectedMediaID, args)), nil
		}
	}

	if r.model == nil {
		return r.reply("Chat model is not configured."), nil
	}
	text, err := r.model.Reply(ctx, history, prompt)
	if err != nil {
		r.logf("[chat] reply failed: %v", err)
		return r.reply("Chat failed: " + err.Error()), fmt.Errorf("chat reply: %w", err)
	}
	return r.reply(text), nil
}

// find locates query in the selected media's transcript and appends a clip
// covering it.
func (r *Router) find(mediaID, query string) string {
	if mediaID == "" {
		return "Please select a media item first."
	}
	tr, ok := r.p.Transcript(mediaID)
	if !ok {
		return "No transcript available for the selected media."
	}
	m, ok := transcript.FindPhrase(transcript.Words(tr), query)
	if !ok {
		return fmt.Sprintf("Could not find \"%s\" in the transcript.", query)
	}
	media, ok := r.p.Library().Get(mediaID)
	if !ok {
		return fmt.Sprintf("Could not find \"%s\" in the transcript.", query)
	}
	if _, err := r.p.Timeline().AddMediaRange(media, m.Start, m.End); err != nil {
		r.logf("[chat] add clip for %q: %v", query, err)
		return fmt.Sprintf("Could not add a clip for \"%s\": %v", query, err)
	}
	return fmt.Sprintf("Found \"%s\" and added a clip to the timeline from %.2fs to %.2fs.", query, m.Start, m.End)
}

func (r *Router) reply(text string) types.ChatMessage {
	msg := r.message(RoleAssistant, text)
	r.p.AppendChat(msg)
	return msg
}

func (r *Router) message(role, text string) types.ChatMessage {
	return types.ChatMessage{ID: uuid.NewString(), Role: role, Text: text, Timestamp: r.now().UTC()}
}
