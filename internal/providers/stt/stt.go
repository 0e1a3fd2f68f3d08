package stt

import (
	"context"

	"github.com/yoockh/yoointerview/internal/speech"
)

// MaxAlternatives is how many hypotheses are requested per utterance.
const MaxAlternatives = 3

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) ([]speech.Alternative, error)
	Close() error
}
