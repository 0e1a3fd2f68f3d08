package stt

import (
	"testing"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/stretchr/testify/assert"
	"github.com/yoockh/yoointerview/internal/speech"
)

func TestAlternativesFromResults(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{
			{Transcript: "I used docker", Confidence: 0.8},
			{Transcript: "I used darker", Confidence: 0.4},
		}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{
			{Transcript: "in production", Confidence: 0.6},
		}},
	}

	got := alternativesFromResults(results)
	assert.Len(t, got, 2)
	assert.Equal(t, "I used docker in production", got[0].Transcript)
	assert.InDelta(t, 0.7, got[0].Confidence, 1e-6)
	assert.Equal(t, "I used darker in production", got[1].Transcript)
	assert.InDelta(t, 0.5, got[1].Confidence, 1e-6)

	assert.Equal(t, "I used docker in production", speech.ChooseBestAlternative(got))
}

func TestAlternativesFromResultsEmpty(t *testing.T) {
	assert.Nil(t, alternativesFromResults(nil))
	assert.Nil(t, alternativesFromResults([]*speechpb.SpeechRecognitionResult{{}}))
}
