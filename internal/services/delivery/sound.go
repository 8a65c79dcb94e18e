package delivery

import (
	"errors"
	"sync"
	"time"
)

var ErrPlayerClosed = errors.New("sound player closed")

// Cue describes a short synthesized tone sequence the client renders.
type Cue struct {
	Severity    SoundSeverity `json:"severity"`
	Waveform    string        `json:"waveform"`
	Frequencies []float64     `json:"frequencies_hz"`
	Step        time.Duration `json:"-"`
	StepMS      int64         `json:"step_ms"`
	Gain        float64       `json:"gain"`
}

func (c Cue) Duration() time.Duration { return c.Step * time.Duration(len(c.Frequencies)) }

func defaultCues() map[SoundSeverity]Cue {
	cues := map[SoundSeverity]Cue{
		SoundUrgent:    {Waveform: "square", Frequencies: []float64{880, 660, 880}, Step: 120 * time.Millisecond, Gain: 0.25},
		SoundImportant: {Waveform: "triangle", Frequencies: []float64{660, 880}, Step: 140 * time.Millisecond, Gain: 0.3},
		SoundInfo:      {Waveform: "sine", Frequencies: []float64{523.25}, Step: 180 * time.Millisecond, Gain: 0.2},
		SoundSuccess:   {Waveform: "sine", Frequencies: []float64{523.25, 659.25, 783.99}, Step: 100 * time.Millisecond, Gain: 0.2},
	}
	for sev, c := range cues {
		c.Severity = sev
		c.StepMS = c.Step.Milliseconds()
		cues[sev] = c
	}
	return cues
}

// SoundPlayer is created lazily by a session on its first cue and closed with it.
type SoundPlayer struct {
	mu     sync.Mutex
	cues   map[SoundSeverity]Cue
	closed bool
	played int
}

func newSoundPlayer() *SoundPlayer {
	return &SoundPlayer{cues: defaultCues()}
}

// Play returns the cue for sev. Unknown severities use the info cue.
func (p *SoundPlayer) Play(sev SoundSeverity) (Cue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return Cue{}, ErrPlayerClosed
	}
	c, ok := p.cues[sev]
	if !ok {
		c = p.cues[SoundInfo]
	}
	p.played++
	return c, nil
}

func (p *SoundPlayer) Played() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

func (p *SoundPlayer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
