package audio

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/callscribe/internal/metrics"
	"github.com/foxseedlab/callscribe/internal/repository"
	"github.com/foxseedlab/callscribe/internal/transcriber"
)

const (
	UnknownSpeakerKey  = "unknown"
	UnknownSpeakerName = "Unknown Speaker"
	// HeuristicConfidence is attached to every entry; the backends do not report a usable score.
	HeuristicConfidence = 0.9

	defaultTranscribeTimeout = 60 * time.Second

	// closedCallsLimit bounds how many cleared calls are remembered for dropping late chunks.
	closedCallsLimit = 1024
)

// TranscriptSink receives recognized utterances. A nil session with a nil error means the call is unknown.
type TranscriptSink interface {
	AppendTranscriptEntry(ctx context.Context, callID string, entry repository.TranscriptEntry) (*repository.Session, error)
}

type bufferKey struct {
	callID    string
	speakerID string
}

type speakerBuffer struct {
	mu          sync.Mutex
	chunks      [][]byte
	size        int
	speakerName string
	seq         uint64
	removed     bool
}

// take returns the concatenated chunks in arrival order and resets the buffer.
func (b *speakerBuffer) take() []byte {
	if b.size == 0 {
		return nil
	}
	pcm := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		pcm = append(pcm, c...)
	}
	b.chunks = nil
	b.size = 0
	return pcm
}

type serialQueue struct {
	jobs    []func()
	running bool
}

// Pipeline accumulates PCM per (call, speaker) and transcribes it off the ingestion path.
// Transcriptions for one call run one at a time in submission order.
type Pipeline struct {
	transcriber transcriber.Transcriber
	sink        TranscriptSink
	metrics     *metrics.Metrics
	timeout     time.Duration
	threshold   int
	now         func() time.Time

	mu          sync.Mutex
	buffers     map[bufferKey]*speakerBuffer
	nextSeq     uint64
	closed      map[string]struct{}
	closedOrder []string

	qmu    sync.Mutex
	queues map[string]*serialQueue
	wg     sync.WaitGroup
}

func NewPipeline(stt transcriber.Transcriber, sink TranscriptSink, m *metrics.Metrics, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = defaultTranscribeTimeout
	}
	return &Pipeline{
		transcriber: stt,
		sink:        sink,
		metrics:     m,
		timeout:     timeout,
		threshold:   TranscribeThreshold,
		now:         time.Now,
		buffers:     make(map[bufferKey]*speakerBuffer),
		closed:      make(map[string]struct{}),
		queues:      make(map[string]*serialQueue),
	}
}

func speakerKey(speakerID *string) string {
	if speakerID == nil || *speakerID == "" {
		return UnknownSpeakerKey
	}
	return *speakerID
}

// buffer returns the key's buffer, creating it on first use. It returns nil once the call was cleared.
func (p *Pipeline) buffer(key bufferKey) *speakerBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.closed[key.callID]; ok {
		return nil
	}
	b, ok := p.buffers[key]
	if !ok {
		p.nextSeq++
		b = &speakerBuffer{seq: p.nextSeq}
		p.buffers[key] = b
	}
	return b
}

func (p *Pipeline) markClosed(callID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.closed[callID]; ok {
		return
	}
	p.closed[callID] = struct{}{}
	p.closedOrder = append(p.closedOrder, callID)
	if len(p.closedOrder) > closedCallsLimit {
		delete(p.closed, p.closedOrder[0])
		p.closedOrder = p.closedOrder[1:]
	}
}

// ProcessAudioChunk appends pcm to the speaker's buffer. Once the buffer reaches the threshold it is
// drained and queued for transcription; the call never waits on the transcription itself.
func (p *Pipeline) ProcessAudioChunk(callID string, pcm []byte, speakerID *string, speakerName string) {
	if callID == "" || len(pcm) == 0 {
		return
	}
	p.metrics.RecordAudioBytes(len(pcm))
	key := bufferKey{callID: callID, speakerID: speakerKey(speakerID)}
	for {
		b := p.buffer(key)
		if b == nil {
			slog.Debug("dropping audio for cleared call", "call_id", callID, "bytes", len(pcm))
			return
		}
		b.mu.Lock()
		if b.removed {
			b.mu.Unlock()
			continue
		}
		b.chunks = append(b.chunks, pcm)
		b.size += len(pcm)
		if speakerName != "" {
			b.speakerName = speakerName
		}
		if b.size >= p.threshold {
			data := b.take()
			slog.Debug("audio buffer reached threshold", "call_id", callID, "speaker_id", key.speakerID, "bytes", len(data))
			// enqueue under the buffer lock so drains of the same key keep their order
			p.enqueueTranscription(key, b.speakerName, data)
		}
		b.mu.Unlock()
		return
	}
}

// FlushAudioBuffer transcribes whatever each of the call's buffers holds, removes them, and waits
// until every transcription queued for the call so far has finished.
func (p *Pipeline) FlushAudioBuffer(ctx context.Context, callID string) error {
	p.metrics.RecordFlush()
	for _, e := range p.detach(callID) {
		e.buf.mu.Lock()
		e.buf.removed = true
		data := e.buf.take()
		name := e.buf.speakerName
		if len(data) > 0 {
			p.enqueueTranscription(e.key, name, data)
		}
		e.buf.mu.Unlock()
	}

	done := make(chan struct{})
	p.enqueue(callID, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClearSession drops the call's buffers without transcribing them. Chunks for the call that arrive
// afterwards are discarded.
func (p *Pipeline) ClearSession(callID string) {
	p.markClosed(callID)
	dropped := 0
	for _, e := range p.detach(callID) {
		e.buf.mu.Lock()
		e.buf.removed = true
		dropped += e.buf.size
		e.buf.chunks = nil
		e.buf.size = 0
		e.buf.mu.Unlock()
	}
	if dropped > 0 {
		slog.Info("discarded buffered audio", "call_id", callID, "bytes", dropped)
	}
}

type detachedBuffer struct {
	key bufferKey
	buf *speakerBuffer
}

// detach removes the call's buffers from the index, oldest first.
func (p *Pipeline) detach(callID string) []detachedBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []detachedBuffer
	for k, b := range p.buffers {
		if k.callID != callID {
			continue
		}
		out = append(out, detachedBuffer{key: k, buf: b})
		delete(p.buffers, k)
	}
	slices.SortFunc(out, func(a, b detachedBuffer) int {
		return cmp.Compare(a.buf.seq, b.buf.seq)
	})
	return out
}

// BufferedBytes reports the pending size for one speaker key; used for observability and tests.
func (p *Pipeline) BufferedBytes(callID string, speakerID *string) int {
	p.mu.Lock()
	b, ok := p.buffers[bufferKey{callID: callID, speakerID: speakerKey(speakerID)}]
	p.mu.Unlock()
	if !ok {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

func (p *Pipeline) enqueueTranscription(key bufferKey, speakerName string, pcm []byte) {
	p.enqueue(key.callID, func() {
		p.transcribe(key, speakerName, pcm)
	})
}

func (p *Pipeline) enqueue(callID string, job func()) {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	q, ok := p.queues[callID]
	if !ok {
		q = &serialQueue{}
		p.queues[callID] = q
	}
	q.jobs = append(q.jobs, job)
	if q.running {
		return
	}
	q.running = true
	p.wg.Add(1)
	go p.drain(callID, q)
}

func (p *Pipeline) drain(callID string, q *serialQueue) {
	defer p.wg.Done()
	for {
		p.qmu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			delete(p.queues, callID)
			p.qmu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		p.qmu.Unlock()
		job()
	}
}

// Wait blocks until all queued transcriptions have run or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) transcribe(key bufferKey, speakerName string, pcm []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	wav, err := EncodeWAV(pcm)
	if err != nil {
		slog.Error("failed to encode wav", "error", err, "call_id", key.callID, "speaker_id", key.speakerID)
		return
	}
	started := time.Now()
	text, err := p.transcriber.Transcribe(ctx, wav)
	text = strings.TrimSpace(text)
	p.metrics.RecordTranscription(time.Since(started), err, text == "")
	if err != nil {
		slog.Warn("transcription failed", "error", err, "call_id", key.callID, "speaker_id", key.speakerID, "bytes", len(pcm))
		return
	}
	if text == "" {
		slog.Debug("empty transcription discarded", "call_id", key.callID, "speaker_id", key.speakerID)
		return
	}

	entry := repository.TranscriptEntry{
		Timestamp:   p.now(),
		SpeakerName: UnknownSpeakerName,
		Text:        text,
		Confidence:  HeuristicConfidence,
	}
	if key.speakerID != UnknownSpeakerKey {
		id := key.speakerID
		entry.SpeakerID = &id
	}
	if speakerName != "" {
		entry.SpeakerName = speakerName
	}
	s, err := p.sink.AppendTranscriptEntry(ctx, key.callID, entry)
	if err != nil {
		slog.Error("failed to append transcript entry", "error", err, "call_id", key.callID, "speaker_id", key.speakerID)
		return
	}
	if s == nil {
		slog.Warn("no session for transcribed audio", "call_id", key.callID)
	}
}
