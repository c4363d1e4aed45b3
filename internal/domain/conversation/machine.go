// Package conversation holds the intake state machine: a pure function from
// (session, utterance) to outbound messages, the next session state and the
// lead-store mutation for the turn. All persistence and delivery is done by
// the caller.
package conversation

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"lead_intake_bot/internal/domain/lead"
)

// Step discriminates where a session sits in the fixed question sequence.
type Step string

const (
	StepAwaitingConsent              Step = "awaiting_consent"
	StepAwaitingAge                  Step = "awaiting_age"
	StepAwaitingCountry              Step = "awaiting_country"
	StepAwaitingInterest             Step = "awaiting_interest"
	StepAwaitingFollowupAfterDecline Step = "awaiting_followup_after_decline"
	StepCompleted                    Step = "completed"
	StepDeclinedFinal                Step = "declined_final"
	StepTerminated                   Step = "terminated"
)

// IsTerminalStep reports whether no further turns produce output.
func IsTerminalStep(s Step) bool {
	return s == StepCompleted || s == StepDeclinedFinal || s == StepTerminated
}

// Message authors as shown in the visible conversation history.
const (
	AuthorAgent  = "Agent"
	AuthorUser   = "User"
	AuthorSystem = "System"
)

// Message is one outbound line of the conversation.
type Message struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// Session is the transient per-lead conversation state. A zero Step means no
// conversation has started and the next turn runs the greeting path.
type Session struct {
	LeadID   string
	Name     string
	Step     Step
	Status   lead.Status
	Age      string
	Country  string
	Interest string
}

// TurnResult carries everything a turn produced. Mutation is the single
// merged store update for the turn; when two messages are emitted the later
// message's fields supersede the earlier one's.
type TurnResult struct {
	Messages   []Message
	Session    Session
	Mutation   lead.Mutation
	Terminated bool
	// Unmodeled is set when the session was in a state the machine does not
	// know; the caller should log it as an error condition.
	Unmodeled bool
}

// Fixed agent lines. The greeting is a format string taking the lead name.
const (
	greetingFmt        = "Hey %s, thank you for filling out the form. I'd like to gather some information from you. Is that okay?"
	msgAskAge          = "Great! What is your age?"
	msgAskCountry      = "Got it. Which country are you from?"
	msgAskInterest     = "Thanks! What product or service are you interested in?"
	msgThankYou        = "Excellent, thank you for the information! We'll be in touch."
	msgGoodbye         = "Ok, goodbye!"
	msgDecline         = "Alright, no problem. Have a great day!"
	msgRepromptAge     = "Sorry, could you provide your age as a number (e.g., 30)?"
	msgRepromptCountry = "Could you please let me know which country you are from?"
	msgRepromptWant    = "Could you please tell me what product or service you are interested in?"
	msgConfused        = "Sorry, I seem to have gotten confused. Could you say that again?"

	// NudgeText is the proactive follow-up line the scheduler enqueues.
	NudgeText = "Just checking in to see if you're still interested. Let me know when you're ready to continue."
)

var affirmativeTokens = []string{"yes", "ok", "okay", "sure", "yeah", "yep", "affirmative"}

// questionMarkers identify the fixed question templates; a message matching
// one expects a reply and arms the follow-up timer.
var questionMarkers = []string{"okay?", "age?", "from?", "interested in?", "ready to continue."}

func isAffirmative(utterance string) bool {
	lowered := strings.ToLower(strings.TrimSpace(utterance))
	for _, token := range affirmativeTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

func expectsReply(text string) bool {
	for _, marker := range questionMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func isValidAge(utterance string) bool {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return false
	}
	n := 0
	for _, r := range trimmed {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + int(r-'0')
		if n >= 1000 {
			return false
		}
	}
	return n > 0 && n < 120
}

// PlaceholderName derives the generated lead name used when intake starts
// without one.
func PlaceholderName(leadID string) string {
	short := leadID
	if len(short) > 6 {
		short = short[:6]
	}
	return "Lead_" + short
}

func statusPtr(s lead.Status) *lead.Status { return &s }
func strPtr(s string) *string              { return &s }
func boolPtr(b bool) *bool                 { return &b }
func tsSet(now time.Time) *sql.NullTime    { return &sql.NullTime{Time: now.UTC(), Valid: true} }
func tsClear() *sql.NullTime               { return &sql.NullTime{} }

// HandleTurn advances the conversation one turn. utterance may be empty (no
// incoming message, e.g. the very first turn). The function is pure: it never
// touches storage or transports.
func HandleTurn(s Session, utterance string, now time.Time) TurnResult {
	if s.Step == "" {
		return startConversation(s, now)
	}

	res := TurnResult{Session: s}
	trimmed := strings.TrimSpace(utterance)

	// The lead has responded, so no pending follow-up is owed for the
	// message that prompted this reply. Does not apply during the decline
	// grace period, where the timer must keep running.
	if trimmed != "" && s.Step != StepAwaitingFollowupAfterDecline {
		res.Mutation.Merge(lead.Mutation{LastAgentMsgAt: tsClear(), FollowUpSent: boolPtr(false)})
	}

	var reply string
	var finalGoodbye string

	switch s.Step {
	case StepAwaitingConsent:
		if isAffirmative(utterance) {
			res.Session.Step = StepAwaitingAge
			res.Session.Status = lead.StatusAwaitingAge
			reply = msgAskAge
		} else {
			// Any non-affirmative utterance counts as a decline, but the
			// lead stays reachable for a grace-period response.
			res.Session.Step = StepAwaitingFollowupAfterDecline
			res.Session.Status = lead.StatusAwaitingFollowupAfterDecline
			reply = msgDecline
		}

	case StepAwaitingAge:
		if isValidAge(utterance) {
			res.Session.Age = strings.TrimSpace(utterance)
			res.Session.Step = StepAwaitingCountry
			res.Session.Status = lead.StatusAwaitingCountry
			res.Mutation.Merge(lead.Mutation{Age: strPtr(res.Session.Age)})
			reply = msgAskCountry
		} else {
			reply = msgRepromptAge
		}

	case StepAwaitingCountry:
		if trimmed != "" {
			res.Session.Country = trimmed
			res.Session.Step = StepAwaitingInterest
			res.Session.Status = lead.StatusAwaitingInterest
			res.Mutation.Merge(lead.Mutation{Country: strPtr(trimmed)})
			reply = msgAskInterest
		} else {
			reply = msgRepromptCountry
		}

	case StepAwaitingInterest:
		if trimmed != "" {
			res.Session.Interest = trimmed
			res.Session.Step = StepCompleted
			res.Session.Status = lead.StatusSecured
			res.Mutation.Merge(lead.Mutation{
				Age:      strPtr(res.Session.Age),
				Country:  strPtr(res.Session.Country),
				Interest: strPtr(trimmed),
			})
			reply = msgThankYou
			finalGoodbye = msgGoodbye
			res.Terminated = true
		} else {
			reply = msgRepromptWant
		}

	case StepAwaitingFollowupAfterDecline:
		// Too late: any further utterance finalizes the decline. The timer
		// and flag are cleared so no follow-up ever fires for this lead.
		res.Session.Step = StepDeclinedFinal
		res.Session.Status = lead.StatusDeclinedFinal
		res.Mutation.Merge(lead.Mutation{LastAgentMsgAt: tsClear(), FollowUpSent: boolPtr(false)})
		reply = msgGoodbye
		res.Terminated = true

	case StepCompleted, StepDeclinedFinal, StepTerminated:
		// Finished conversations only re-assert their stored status.
		res.Mutation = lead.Mutation{Status: statusPtr(s.Status)}
		res.Terminated = true
		return res

	default:
		res.Unmodeled = true
		res.Messages = append(res.Messages, Message{Author: AuthorAgent, Text: msgConfused})
		return res
	}

	if reply != "" {
		res.Messages = append(res.Messages, Message{Author: AuthorAgent, Text: reply})
		// Emitting a question (or entering the decline grace period) arms
		// the follow-up timer for this message.
		if expectsReply(reply) || res.Session.Step == StepAwaitingFollowupAfterDecline {
			res.Mutation.Merge(lead.Mutation{LastAgentMsgAt: tsSet(now), FollowUpSent: boolPtr(false)})
		}
	}
	if finalGoodbye != "" && finalGoodbye != reply {
		res.Messages = append(res.Messages, Message{Author: AuthorAgent, Text: finalGoodbye})
	}

	if res.Terminated {
		if res.Session.Step == StepCompleted {
			res.Session.Step = StepTerminated
		}
		if res.Session.Step == StepDeclinedFinal {
			res.Session.Step = StepTerminated
			res.Session.Status = lead.StatusDeclinedFinal
		}
	}

	if res.Session.Status != s.Status && res.Session.Status != "" {
		res.Mutation.Merge(lead.Mutation{Status: statusPtr(res.Session.Status)})
	}

	return res
}

// startConversation runs the greeting path: it ignores any utterance, fixes
// the lead name and asks the consent question.
func startConversation(s Session, now time.Time) TurnResult {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = PlaceholderName(s.LeadID)
	}

	next := Session{
		LeadID: s.LeadID,
		Name:   name,
		Step:   StepAwaitingConsent,
		Status: lead.StatusAwaitingConsent,
	}
	return TurnResult{
		Messages: []Message{{Author: AuthorAgent, Text: fmt.Sprintf(greetingFmt, name)}},
		Session:  next,
		Mutation: lead.Mutation{
			Name:           strPtr(name),
			Status:         statusPtr(lead.StatusAwaitingConsent),
			LastAgentMsgAt: tsSet(now),
			FollowUpSent:   boolPtr(false),
		},
	}
}
