// Package setup collects the digest settings through a stepwise conversation, either in a chat
// or on the console, and hands confirmed settings to the store and the scheduler.
package setup

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/newsdigest/pkg/domain"
)

//go:generate moq -out mocks/assistant.go -pkg mocks -skip-ensure -fmt goimports . Assistant
//go:generate moq -out mocks/saver.go -pkg mocks -skip-ensure -fmt goimports . Saver
//go:generate moq -out mocks/launcher.go -pkg mocks -skip-ensure -fmt goimports . Launcher
//go:generate moq -out mocks/loader.go -pkg mocks -skip-ensure -fmt goimports . Loader

// Assistant phrases replies from the conversation transcript
type Assistant interface {
	Reply(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// Saver persists confirmed settings
type Saver interface {
	Save(s domain.Settings) error
}

// Launcher starts the digest scheduler for confirmed settings
type Launcher interface {
	Launch(s domain.Settings)
}

// Loader reads previously saved settings
type Loader interface {
	Load() (domain.Settings, error)
}

// scripted replies
const (
	msgGreeting      = "Hi! I will set up your news digest. Which topics or keywords should I track?"
	msgNoKeywords    = "Please tell me at least one topic or keyword to track."
	msgSuggested     = "Suggested keywords: %s\nReply \"yes\" to keep them or send the keywords you want instead."
	msgAskCadence    = "Keywords set to: %s\nHow often should I send the digest? Enter the cadence in minutes."
	msgBadCadence    = "The cadence must be a whole number of minutes greater than zero. How often should I send the digest?"
	msgBigCadence    = "The cadence can't be longer than %d minutes. How often should I send the digest?"
	msgAskSender     = "Which email address should send the digest?"
	msgAskPassword   = "What is the password for %s? It will be stored locally."
	msgAskRecipient  = "Which email address should receive the digest?"
	msgAskSMTPServer = "Which SMTP server should I use (e.g., smtp.gmail.com)?"
	msgAskSMTPPort   = "Which SMTP port should I use (e.g., 587)?"
	msgBadSMTPPort   = "The SMTP port must be a number between 1 and 65535. Which SMTP port should I use (e.g., 587)?"
	msgRequired      = "This value is required. "
	msgSummary       = "Confirm the following settings:\nKeywords: %s\nCadence: %d minutes\nSender: %s\n" +
		"Recipient: %s\nSMTP: %s:%d\nReply yes to start or no to cancel."
	msgSaveFailed = "Can't save settings: %v\nReply yes to try again or no to cancel."
	msgStarted    = "Settings saved, the news digest agent has started."
	msgSaved      = "Settings saved."
	msgCanceled   = "Setup canceled, nothing was saved."
	msgComplete   = "Setup is complete."
)

// replaces the password answer in the history and the assistant transcript
const passwordMask = "********"

// State of a single conversation. Step never modifies the state passed in, it returns a new one.
type State struct {
	Stage      Stage                `json:"stage"`
	Draft      domain.Settings      `json:"-"`
	Transcript []domain.ChatMessage `json:"-"`
	History    []domain.Turn        `json:"history"`
	Confirmed  bool                 `json:"confirmed"`
}

// Conversation drives the setup stages. Replies are scripted, an optional assistant rephrases them.
type Conversation struct {
	Params
}

// Params of the conversation, Assistant and Launcher are optional
type Params struct {
	Assistant Assistant
	Saver     Saver
	Launcher  Launcher
}

// NewConversation makes a conversation with the given collaborators
func NewConversation(params Params) *Conversation {
	return &Conversation{Params: params}
}

// Start returns the initial state and the greeting
func (c *Conversation) Start(ctx context.Context) (State, string) {
	st := State{Stage: StageCollectKeywords}
	reply := c.phrase(ctx, &st, "Begin setup.", msgGreeting)
	st.History = append(st.History, domain.Turn{Reply: reply})
	return st, reply
}

// Step processes the user's answer for the current stage and returns the next state with the reply.
// Invalid numeric answers keep the stage and repeat the question.
func (c *Conversation) Step(ctx context.Context, input string, st State) (State, string) {
	if st.Stage == StageDone {
		return st, msgComplete
	}

	next := st
	next.History = slices.Clip(st.History)
	next.Transcript = slices.Clip(st.Transcript)

	shown := input
	if st.Stage == StageCollectSenderPassword && input != "" {
		shown = passwordMask
	}

	scripted := c.advance(&next, input)
	reply := c.phrase(ctx, &next, shown, scripted)
	next.History = append(next.History, domain.Turn{User: shown, Reply: reply})
	return next, reply
}

// advance applies the answer to the state and returns the scripted reply
func (c *Conversation) advance(st *State, input string) string {
	answer := strings.TrimSpace(input)

	switch st.Stage {
	case StageCollectKeywords:
		suggested := suggestKeywords(answer)
		if suggested == "" {
			return msgNoKeywords
		}
		st.Draft.Keywords = suggested
		st.Stage = StageRefineKeywords
		return fmt.Sprintf(msgSuggested, st.Draft.Keywords)

	case StageRefineKeywords:
		if !keepKeywords(answer) {
			st.Draft.Keywords = answer
		}
		st.Stage = StageCollectCadence
		return fmt.Sprintf(msgAskCadence, st.Draft.Keywords)

	case StageCollectCadence:
		minutes, err := strconv.Atoi(answer)
		if err != nil || minutes <= 0 {
			return msgBadCadence
		}
		if minutes > domain.MaxCadenceMinutes {
			return fmt.Sprintf(msgBigCadence, domain.MaxCadenceMinutes)
		}
		st.Draft.CadenceMinutes = minutes
		st.Stage = StageCollectSenderEmail
		return msgAskSender

	case StageCollectSenderEmail:
		if answer == "" {
			return msgRequired + msgAskSender
		}
		st.Draft.SenderEmail = answer
		st.Stage = StageCollectSenderPassword
		return fmt.Sprintf(msgAskPassword, answer)

	case StageCollectSenderPassword:
		st.Draft.SenderPassword = answer
		st.Stage = StageCollectRecipient
		return msgAskRecipient

	case StageCollectRecipient:
		if answer == "" {
			return msgRequired + msgAskRecipient
		}
		st.Draft.RecipientEmail = answer
		st.Stage = StageCollectSMTPServer
		return msgAskSMTPServer

	case StageCollectSMTPServer:
		if answer == "" {
			return msgRequired + msgAskSMTPServer
		}
		st.Draft.SMTPServer = answer
		st.Stage = StageCollectSMTPPort
		return msgAskSMTPPort

	case StageCollectSMTPPort:
		port, err := strconv.Atoi(answer)
		if err != nil || port < 1 || port > 65535 {
			return msgBadSMTPPort
		}
		st.Draft.SMTPPort = port
		st.Stage = StageConfirm
		return summary(st.Draft)

	case StageConfirm:
		return c.confirm(st, answer)
	}

	return msgComplete
}

// confirm saves and launches on an answer starting with "y", any other answer cancels the setup
func (c *Conversation) confirm(st *State, answer string) string {
	if !strings.HasPrefix(strings.ToLower(answer), "y") {
		st.Stage = StageDone
		lgr.Printf("[INFO] setup canceled")
		return msgCanceled
	}

	if err := c.Saver.Save(st.Draft); err != nil {
		lgr.Printf("[WARN] can't save settings: %v", err)
		return fmt.Sprintf(msgSaveFailed, err)
	}
	st.Stage = StageDone
	st.Confirmed = true
	lgr.Printf("[INFO] settings saved for %q, cadence %d minutes", st.Draft.Keywords, st.Draft.CadenceMinutes)

	if c.Launcher == nil {
		return msgSaved
	}
	c.Launcher.Launch(st.Draft)
	return msgStarted
}

// phrase asks the assistant to convey the scripted reply. Without an assistant the scripted reply
// is used as is, assistant errors are appended to it.
func (c *Conversation) phrase(ctx context.Context, st *State, input, scripted string) string {
	if c.Assistant == nil {
		return scripted
	}

	st.Transcript = append(st.Transcript,
		domain.ChatMessage{Role: domain.RoleUser, Content: input},
		domain.ChatMessage{Role: domain.RoleSystem, Content: instruction(st.Stage, scripted)},
	)
	reply, err := c.Assistant.Reply(ctx, st.Transcript)
	if err != nil {
		lgr.Printf("[WARN] assistant failed: %v", err)
		return fmt.Sprintf("%s\n(assistant unavailable: %v)", scripted, err)
	}
	st.Transcript = append(st.Transcript, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return reply
}

// instruction tells the assistant what to say next
func instruction(stage Stage, scripted string) string {
	hint := "Convey the following message to the user in your own words. Keep every value unchanged."
	switch stage {
	case StageRefineKeywords:
		hint = "Present the suggested keywords as a comma-separated list and ask for confirmation or modifications."
	case StageConfirm:
		hint = "Summarize the settings exactly as listed and ask for yes/no confirmation to start the agent."
	case StageDone:
		hint = "Tell the user the outcome of the setup."
	}
	return hint + "\n\n" + scripted
}

// suggestKeywords normalizes a free-form topic list into comma-separated unique keywords
func suggestKeywords(text string) string {
	seen := map[string]bool{}
	res := []string{}
	for _, kw := range strings.Split(text, ",") {
		kw = strings.Join(strings.Fields(kw), " ")
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		res = append(res, kw)
	}
	return strings.Join(res, ", ")
}

// keepKeywords reports whether the refine answer accepts the suggested keywords
func keepKeywords(answer string) bool {
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return true
	}
	return false
}

// summary lists the collected settings without the password
func summary(s domain.Settings) string {
	return fmt.Sprintf(msgSummary, s.Keywords, s.CadenceMinutes, s.SenderEmail, s.RecipientEmail, s.SMTPServer, s.SMTPPort)
}
