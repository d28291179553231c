package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"lifeline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioService_NoSinkIsNoop(t *testing.T) {
	as := NewAudioService(nil, time.Millisecond)
	assert.False(t, as.Available())
	as.Speak(context.Background(), "hello", SpeechOptions{})
	assert.NoError(t, as.PlayCountdown(context.Background(), 2, models.LanguageEnglish))
}

func TestAudioService_UnsupportedLanguageFallsBackToEnglish(t *testing.T) {
	sink := &recordingSink{}
	as := NewAudioService(sink, time.Millisecond)

	as.PlayFirstAidInstruction(context.Background(), "Apply pressure", models.Language("fr"), false)

	requests := sink.all()
	require.Len(t, requests, 1)
	assert.Equal(t, models.LanguageEnglish, requests[0].Language)
	assert.Equal(t, "en-IN", requests[0].LanguageTag)
	assert.Equal(t, "Step: Apply pressure", requests[0].Text)
}

func TestAudioService_WarningsAreSlowerAndHigher(t *testing.T) {
	sink := &recordingSink{}
	as := NewAudioService(sink, time.Millisecond)

	as.PlayFirstAidInstruction(context.Background(), "Do not move the patient", models.LanguageHindi, true)

	requests := sink.all()
	require.Len(t, requests, 1)
	assert.Equal(t, SpeechKindWarning, requests[0].Kind)
	assert.Equal(t, 0.8, requests[0].Rate)
	assert.Equal(t, 1.2, requests[0].Pitch)
	assert.Equal(t, "hi-IN", requests[0].LanguageTag)
	assert.True(t, strings.HasPrefix(requests[0].Text, "चेतावनी:"))
}

func TestAudioService_PlayFirstAidStepsQueuesWarningsAfterSteps(t *testing.T) {
	sink := &recordingSink{}
	as := NewAudioService(sink, time.Millisecond)

	as.PlayFirstAidSteps(context.Background(), []models.FirstAidStep{
		{Number: 1, Instruction: "Check breathing", Warning: "Do not give water"},
		{Number: 2, Instruction: "Keep warm"},
	}, models.LanguageEnglish)

	var kinds []string
	for _, r := range sink.all() {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []string{SpeechKindInstruction, SpeechKindWarning, SpeechKindInstruction}, kinds)
}

func TestAudioService_PlayEmergencyAlert(t *testing.T) {
	sink := &recordingSink{}
	as := NewAudioService(sink, time.Millisecond)

	as.PlayEmergencyAlert(context.Background(), "Stroke", models.LanguageTamil)

	requests := sink.all()
	require.Len(t, requests, 1)
	assert.Equal(t, SpeechKindAlert, requests[0].Kind)
	assert.Contains(t, requests[0].Text, "Stroke")
	assert.Equal(t, "ta-IN", requests[0].LanguageTag)
}

func TestAudioService_PlayCountdown(t *testing.T) {
	sink := &recordingSink{}
	as := NewAudioService(sink, 5*time.Millisecond)

	err := as.PlayCountdown(context.Background(), 3, models.LanguageEnglish)
	require.NoError(t, err)

	var words []string
	for _, r := range sink.all() {
		assert.Equal(t, SpeechKindCountdown, r.Kind)
		words = append(words, r.Text)
	}
	assert.Equal(t, []string{"three", "two", "one"}, words)
}

func TestAudioService_PlayCountdownStopsOnCancel(t *testing.T) {
	sink := &recordingSink{}
	as := NewAudioService(sink, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := as.PlayCountdown(ctx, 10, models.LanguageEnglish)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, sink.all(), 1)
}

func TestNumberWord(t *testing.T) {
	assert.Equal(t, "ten", numberWord(10, models.LanguageEnglish))
	assert.Equal(t, "पांच", numberWord(5, models.LanguageHindi))
	assert.Equal(t, "11", numberWord(11, models.LanguageTamil))
}
