package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lifeline/metrics"
	"lifeline/models"

	"github.com/sirupsen/logrus"
)

const (
	defaultSpeechRate  = 1.0
	defaultSpeechPitch = 1.0
	warningSpeechRate  = 0.8
	warningSpeechPitch = 1.2
)

// Speech request kinds
const (
	SpeechKindSpeech      = "speech"
	SpeechKindInstruction = "instruction"
	SpeechKindWarning     = "warning"
	SpeechKindAlert       = "alert"
	SpeechKindCountdown   = "countdown"
)

type SpeechOptions struct {
	Language models.Language
	Rate     float64
	Pitch    float64
}

// SpeechRequest is handed to the external speech engine
type SpeechRequest struct {
	Text        string
	Language    models.Language
	LanguageTag string
	Rate        float64
	Pitch       float64
	Kind        string
}

// SpeechSink is the external speech engine. Implementations must not block.
type SpeechSink interface {
	Speak(ctx context.Context, req SpeechRequest) error
}

type AudioService struct {
	sink    SpeechSink
	cadence time.Duration
}

func NewAudioService(sink SpeechSink, cadence time.Duration) *AudioService {
	if cadence <= 0 {
		cadence = time.Second
	}
	return &AudioService{
		sink:    sink,
		cadence: cadence,
	}
}

// Available reports whether a speech engine is attached
func (as *AudioService) Available() bool {
	return as.sink != nil
}

// Speak is best-effort: a missing or failing engine is a no-op
func (as *AudioService) Speak(ctx context.Context, text string, opts SpeechOptions) {
	as.speak(ctx, text, opts, SpeechKindSpeech)
}

func (as *AudioService) speak(ctx context.Context, text string, opts SpeechOptions, kind string) {
	if as.sink == nil || text == "" {
		return
	}

	lang := opts.Language.Normalize()
	if opts.Rate <= 0 {
		opts.Rate = defaultSpeechRate
	}
	if opts.Pitch <= 0 {
		opts.Pitch = defaultSpeechPitch
	}

	req := SpeechRequest{
		Text:        text,
		Language:    lang,
		LanguageTag: lang.Tag(),
		Rate:        opts.Rate,
		Pitch:       opts.Pitch,
		Kind:        kind,
	}

	metrics.RecordSpeech(kind, string(lang))
	if err := as.sink.Speak(ctx, req); err != nil {
		logrus.Debugf("Speech request dropped: %v", err)
	}
}

// PlayFirstAidInstruction prefixes the language's step or warning marker
func (as *AudioService) PlayFirstAidInstruction(ctx context.Context, text string, lang models.Language, isWarning bool) {
	lang = lang.Normalize()
	phrases := phrasesFor(lang)

	if isWarning {
		as.speak(ctx, phrases.warning+" "+text, SpeechOptions{Language: lang, Rate: warningSpeechRate, Pitch: warningSpeechPitch}, SpeechKindWarning)
		return
	}
	as.speak(ctx, phrases.step+" "+text, SpeechOptions{Language: lang, Rate: defaultSpeechRate, Pitch: defaultSpeechPitch}, SpeechKindInstruction)
}

// PlayFirstAidSteps queues every step of a category, each warning right after its step
func (as *AudioService) PlayFirstAidSteps(ctx context.Context, steps []models.FirstAidStep, lang models.Language) {
	for _, step := range steps {
		as.PlayFirstAidInstruction(ctx, step.Instruction, lang, false)
		if step.Warning != "" {
			as.PlayFirstAidInstruction(ctx, step.Warning, lang, true)
		}
	}
}

// PlayEmergencyAlert confirms that emergency services were contacted
func (as *AudioService) PlayEmergencyAlert(ctx context.Context, categoryTitle string, lang models.Language) {
	lang = lang.Normalize()
	as.speak(ctx, fmt.Sprintf(phrasesFor(lang).alert, categoryTitle), SpeechOptions{Language: lang, Rate: defaultSpeechRate, Pitch: defaultSpeechPitch}, SpeechKindAlert)
}

// PlayCountdown speaks n down to 1, one word per cadence. It blocks until done
// and stops early when ctx ends.
func (as *AudioService) PlayCountdown(ctx context.Context, n int, lang models.Language) error {
	lang = lang.Normalize()

	for i := n; i >= 1; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		as.speak(ctx, numberWord(i, lang), SpeechOptions{Language: lang, Rate: defaultSpeechRate, Pitch: defaultSpeechPitch}, SpeechKindCountdown)

		if i == 1 {
			break
		}
		timer := time.NewTimer(as.cadence)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

type languagePhrases struct {
	step    string
	warning string
	alert   string
	numbers [10]string
}

func phrasesFor(lang models.Language) languagePhrases {
	switch lang.Normalize() {
	case models.LanguageHindi:
		return languagePhrases{
			step:    "चरण:",
			warning: "चेतावनी:",
			alert:   "%s के लिए आपातकालीन सेवाओं से संपर्क किया गया है। मदद रास्ते में है।",
			numbers: [10]string{"एक", "दो", "तीन", "चार", "पांच", "छह", "सात", "आठ", "नौ", "दस"},
		}
	case models.LanguageTamil:
		return languagePhrases{
			step:    "படி:",
			warning: "எச்சரிக்கை:",
			alert:   "%s க்கான அவசர சேவைகள் தொடர்பு கொள்ளப்பட்டன. உதவி வந்து கொண்டிருக்கிறது.",
			numbers: [10]string{"ஒன்று", "இரண்டு", "மூன்று", "நான்கு", "ஐந்து", "ஆறு", "ஏழு", "எட்டு", "ஒன்பது", "பத்து"},
		}
	default:
		return languagePhrases{
			step:    "Step:",
			warning: "Warning:",
			alert:   "Emergency services have been contacted for %s. Help is on the way.",
			numbers: [10]string{"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"},
		}
	}
}

func numberWord(n int, lang models.Language) string {
	if n >= 1 && n <= 10 {
		return phrasesFor(lang).numbers[n-1]
	}
	return strconv.Itoa(n)
}
