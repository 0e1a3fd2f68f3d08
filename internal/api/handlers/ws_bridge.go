package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yoockh/yoointerview/internal/interview"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/speech"
)

var errMediaDenied = errors.New("camera/microphone permission denied")

// wsBridge implements the controller ports on top of the browser connection.
// Every speak and listen request carries an op id; replies for any other op
// are stale and dropped.
type wsBridge struct {
	conn      *wsConn
	lang      string
	serverSTT bool

	mu       sync.Mutex
	caps     wsCapabilities
	op       int64
	speaking map[int64]chan error
	rec      *wsRecognition
	media    chan bool
	closed   bool
}

func newWSBridge(conn *wsConn, lang string, serverSTT bool) *wsBridge {
	if lang == "" {
		lang = interview.DefaultLanguage
	}
	return &wsBridge{
		conn:      conn,
		lang:      lang,
		serverSTT: serverSTT,
		speaking:  map[int64]chan error{},
	}
}

func (b *wsBridge) setCapabilities(c wsCapabilities) {
	b.mu.Lock()
	b.caps = c
	b.mu.Unlock()
}

func (b *wsBridge) nextOp() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.op++
	return b.op
}

func (b *wsBridge) Notify(e interview.Event) {
	_ = b.conn.writeJSON(wsServerMsg{Type: "event", Event: &e})
}

// Speak blocks until the browser reports the end of playback.
func (b *wsBridge) Speak(ctx context.Context, text string) error {
	b.mu.Lock()
	enabled := b.caps.SpeechSynthesis && !b.closed
	b.mu.Unlock()
	if !enabled {
		// the question event already carries the text
		return nil
	}

	op := b.nextOp()
	done := make(chan error, 1)
	b.mu.Lock()
	b.speaking[op] = done
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.speaking, op)
		b.mu.Unlock()
	}()

	if err := b.conn.writeJSON(wsServerMsg{Type: "speak", Op: op, Text: text, Lang: b.lang}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = b.conn.writeJSON(wsServerMsg{Type: "cancel_speech", Op: op})
		return ctx.Err()
	}
}

func (b *wsBridge) speechEnded(op int64, reason string) {
	b.mu.Lock()
	done, ok := b.speaking[op]
	b.mu.Unlock()
	if !ok {
		return
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(reason)) {
	case "":
	case "interrupted", "canceled", "cancelled":
		// the candidate stopped playback; the controller skips thinking time
		err = interview.ErrInterrupted
	default:
		err = errors.New(reason)
	}
	select {
	case done <- err:
	default:
	}
}

func (b *wsBridge) Supported() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caps.SpeechRecognition || (b.caps.ServerSTT && b.serverSTT)
}

func (b *wsBridge) Start(ctx context.Context, opts interview.ListenOptions) (interview.Recognition, error) {
	if !b.Supported() {
		return nil, interview.ErrRecognitionUnsupported
	}

	op := b.nextOp()
	r := &wsRecognition{
		bridge:  b,
		op:      op,
		results: make(chan interview.Utterance, 16),
		done:    make(chan struct{}),
		chunks:  map[int64]string{},
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("connection closed")
	}
	prev := b.rec
	b.rec = r
	b.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	lang := opts.Language
	if lang == "" {
		lang = b.lang
	}
	err := b.conn.writeJSON(wsServerMsg{
		Type:            "listen",
		Op:              op,
		MaxSeconds:      int(opts.MaxDuration / time.Second),
		MaxAlternatives: opts.MaxAlternatives,
		Lang:            lang,
	})
	if err != nil {
		r.Stop()
		return nil, err
	}
	return r, nil
}

func (b *wsBridge) active(op int64) *wsRecognition {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rec == nil || b.rec.op != op {
		return nil
	}
	return b.rec
}

func (b *wsBridge) recognized(op int64, alts []speech.Alternative, final bool) {
	if r := b.active(op); r != nil {
		r.deliver(interview.Utterance{Alternatives: alts, Final: final})
	}
}

func (b *wsBridge) recognitionEnded(op int64) {
	if r := b.active(op); r != nil {
		r.end()
	}
}

func (b *wsBridge) chunkRecognized(res services.ChunkResult) {
	if r := b.active(res.OpID); r != nil {
		r.chunk(res)
	}
}

func (b *wsBridge) Acquire(ctx context.Context) (func(), error) {
	b.mu.Lock()
	wantMedia := b.caps.Media
	ch := make(chan bool, 1)
	b.media = ch
	b.mu.Unlock()
	if !wantMedia {
		return func() {}, nil
	}

	if err := b.conn.writeJSON(wsServerMsg{Type: "acquire_media"}); err != nil {
		return nil, err
	}

	t := time.NewTimer(mediaTimeout)
	defer t.Stop()
	select {
	case granted := <-ch:
		if !granted {
			return nil, errMediaDenied
		}
	case <-t.C:
		return nil, errors.New("no media_status from client")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return func() { _ = b.conn.writeJSON(wsServerMsg{Type: "release_media"}) }, nil
}

func (b *wsBridge) mediaStatus(granted bool) {
	b.mu.Lock()
	ch := b.media
	b.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- granted:
	default:
	}
}

// closeAll ends any pending recognition once the socket is gone.
func (b *wsBridge) closeAll() {
	b.mu.Lock()
	b.closed = true
	r := b.rec
	b.mu.Unlock()
	if r != nil {
		r.end()
	}
}

// wsRecognition is one listen op.
type wsRecognition struct {
	bridge *wsBridge
	op     int64

	mu      sync.Mutex
	results chan interview.Utterance
	ended   bool
	chunks  map[int64]string // server-side chunk transcripts by index

	done     chan struct{}
	stopOnce sync.Once
}

func (r *wsRecognition) Results() <-chan interview.Utterance { return r.results }

func (r *wsRecognition) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		b := r.bridge
		b.mu.Lock()
		if b.rec == r {
			b.rec = nil
		}
		closed := b.closed
		b.mu.Unlock()
		if !closed {
			_ = b.conn.writeJSON(wsServerMsg{Type: "stop_listening", Op: r.op})
		}
	})
}

func (r *wsRecognition) deliver(u interview.Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	select {
	case r.results <- u:
	case <-r.done:
	}
}

func (r *wsRecognition) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ended {
		r.ended = true
		close(r.results)
	}
}

// chunk merges server-side results: earlier chunks prefix every hypothesis
// of the final one.
func (r *wsRecognition) chunk(res services.ChunkResult) {
	r.mu.Lock()
	if res.Status == services.STTDone && !res.IsFinal {
		r.chunks[res.ChunkIndex] = res.Transcript
	}
	prefix := r.prefixBefore(res.ChunkIndex, res.IsFinal)
	r.mu.Unlock()

	if !res.IsFinal {
		r.deliver(interview.Utterance{Alternatives: []speech.Alternative{{Transcript: prefix}}})
		return
	}

	var alts []speech.Alternative
	if res.Status == services.STTDone {
		for _, a := range res.Alternatives {
			alts = append(alts, speech.Alternative{Transcript: joinText(prefix, a.Transcript), Confidence: a.Confidence})
		}
	}
	if len(alts) == 0 {
		alts = []speech.Alternative{{Transcript: prefix}}
	}
	r.deliver(interview.Utterance{Alternatives: alts, Final: true})
}

// prefixBefore joins stored chunks in index order; for a final chunk only the
// ones before it count.
func (r *wsRecognition) prefixBefore(idx int64, final bool) string {
	keys := make([]int64, 0, len(r.chunks))
	for k := range r.chunks {
		if !final || k < idx {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var out string
	for _, k := range keys {
		out = joinText(out, r.chunks[k])
	}
	return out
}

func joinText(a, b string) string {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func toAlternatives(in []alternativeMsg) []speech.Alternative {
	out := make([]speech.Alternative, 0, len(in))
	for _, a := range in {
		out = append(out, speech.Alternative{Transcript: a.Transcript, Confidence: a.Confidence})
	}
	return out
}
