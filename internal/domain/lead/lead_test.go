package lead

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutation_ApplyToIsIdempotent(t *testing.T) {
	status := StatusAwaitingAge
	age := "30"
	armed := sql.NullTime{Time: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), Valid: true}
	flag := false
	m := Mutation{Status: &status, Age: &age, LastAgentMsgAt: &armed, FollowUpSent: &flag}

	l := Lead{ID: "L1", Name: "Alice", Country: "USA"}
	m.ApplyTo(&l)
	first := l
	m.ApplyTo(&l)

	assert.Equal(t, first, l)
	assert.Equal(t, "Alice", l.Name, "nil fields leave the record untouched")
	assert.Equal(t, "USA", l.Country)
	assert.Equal(t, StatusAwaitingAge, l.Status)
	assert.Equal(t, "30", l.Age)
	assert.True(t, l.LastAgentMsgAt.Valid)
}

func TestMutation_ClearTimestamp(t *testing.T) {
	l := Lead{ID: "L1", LastAgentMsgAt: sql.NullTime{Time: time.Now(), Valid: true}, FollowUpSent: true}
	cleared := sql.NullTime{}
	flag := false
	Mutation{LastAgentMsgAt: &cleared, FollowUpSent: &flag}.ApplyTo(&l)

	assert.False(t, l.LastAgentMsgAt.Valid)
	assert.False(t, l.FollowUpSent)
}

func TestMutation_MergeLaterWins(t *testing.T) {
	early := StatusAwaitingConsent
	late := StatusAwaitingAge
	name := "Bob"

	m := Mutation{Status: &early, Name: &name}
	m.Merge(Mutation{Status: &late})

	assert.Equal(t, StatusAwaitingAge, *m.Status)
	assert.Equal(t, "Bob", *m.Name, "fields absent from the later mutation survive")
}

func TestMutation_IsEmpty(t *testing.T) {
	assert.True(t, Mutation{}.IsEmpty())
	flag := true
	assert.False(t, Mutation{FollowUpSent: &flag}.IsEmpty())
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("")
	require.NoError(t, err)
	assert.False(t, ts.Valid, "empty string means no pending reply")

	ts, err = ParseTimestamp("2025-06-01T12:00:00.5Z")
	require.NoError(t, err)
	assert.True(t, ts.Valid)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 500000000, time.UTC), ts.Time)

	ts, err = ParseTimestamp("2025-06-01T12:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), ts.Time, "offsets normalize to UTC")

	_, err = ParseTimestamp("yesterday at noon")
	assert.Error(t, err)
}

func TestTimestampRoundTrip(t *testing.T) {
	armed := sql.NullTime{Time: time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC), Valid: true}
	back, err := ParseTimestamp(FormatTimestamp(armed))
	require.NoError(t, err)
	assert.Equal(t, armed, back)

	assert.Equal(t, "", FormatTimestamp(sql.NullTime{}))
}

func TestParseFlag(t *testing.T) {
	assert.True(t, ParseFlag("true"))
	assert.True(t, ParseFlag(" True "))
	assert.True(t, ParseFlag("1"))
	assert.False(t, ParseFlag("false"))
	assert.False(t, ParseFlag(""))
	assert.False(t, ParseFlag("banana"), "garbage counts as false")
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusSecured))
	assert.True(t, IsTerminal(StatusDeclinedFinal))
	assert.True(t, IsTerminal("no_response"), "legacy export statuses stay excluded")
	assert.False(t, IsTerminal(StatusAwaitingConsent))
	assert.False(t, IsTerminal(StatusAwaitingFollowupAfterDecline))
}
