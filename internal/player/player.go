// Package player is the playback state of the course details page: one active media
// resource chosen from a course playlist, with auto-advance on end of media.
package player

import (
	"errors"
	"fmt"

	"github.com/musickatta/katta-admin/internal/models"
)

var (
	ErrInvalidTransition = errors.New("invalid player transition")
	ErrNoSuchEntry       = errors.New("no such playlist entry")
)

// State is the coarse playback state.
type State int

const (
	Unloaded State = iota
	Paused
	Playing
	Ended
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	default:
		return "unloaded"
	}
}

// Player holds the active entry and its playback sub-state. Positions and durations
// are in seconds; a zero duration means it is not known yet.
type Player struct {
	playlist []models.Video
	index    int
	state    State
	position float64
	duration float64
	volume   float64
}

// New creates an unloaded player over playlist, in playback order.
func New(playlist []models.Video) *Player {
	return &Player{playlist: playlist, index: -1, volume: 1}
}

func (p *Player) State() State             { return p.state }
func (p *Player) Index() int               { return p.index }
func (p *Player) Position() float64        { return p.position }
func (p *Player) Duration() float64        { return p.duration }
func (p *Player) Volume() float64          { return p.volume }
func (p *Player) Len() int                 { return len(p.playlist) }
func (p *Player) HasNext() bool            { return p.index >= 0 && p.index+1 < len(p.playlist) }
func (p *Player) HasPrevious() bool        { return p.index > 0 }
func (p *Player) Playlist() []models.Video { return p.playlist }

// Current returns the active entry.
func (p *Player) Current() (models.Video, bool) {
	if p.index < 0 {
		return models.Video{}, false
	}
	return p.playlist[p.index], true
}

// Select loads entry i, paused at the start.
func (p *Player) Select(i int) error {
	if i < 0 || i >= len(p.playlist) {
		return fmt.Errorf("%w: %d", ErrNoSuchEntry, i)
	}
	p.index = i
	p.state = Paused
	p.position = 0
	p.duration = 0
	return nil
}

// SelectID loads the entry with the given video id.
func (p *Player) SelectID(id string) error {
	for i, v := range p.playlist {
		if string(v.VideoID) == id {
			return p.Select(i)
		}
	}
	return fmt.Errorf("%w: %q", ErrNoSuchEntry, id)
}

// Next loads the following entry.
func (p *Player) Next() error { return p.Select(p.index + 1) }

// Previous loads the preceding entry.
func (p *Player) Previous() error {
	if p.index <= 0 {
		return fmt.Errorf("%w: %d", ErrNoSuchEntry, p.index-1)
	}
	return p.Select(p.index - 1)
}

// Play starts playback. Playing an ended entry restarts it.
func (p *Player) Play() error {
	switch p.state {
	case Unloaded:
		return p.invalid("play")
	case Ended:
		p.position = 0
	}
	p.state = Playing
	return nil
}

// Pause stops playback, keeping the position.
func (p *Player) Pause() error {
	switch p.state {
	case Playing:
		p.state = Paused
	case Paused:
	default:
		return p.invalid("pause")
	}
	return nil
}

// Toggle is the play/pause control.
func (p *Player) Toggle() error {
	if p.state == Playing {
		return p.Pause()
	}
	return p.Play()
}

// Seek moves to pos, clamped to the media bounds. Scrubbing pauses playback.
func (p *Player) Seek(pos float64) error {
	if p.state == Unloaded {
		return p.invalid("seek")
	}
	if pos < 0 {
		pos = 0
	}
	if p.duration > 0 && pos > p.duration {
		pos = p.duration
	}
	p.position = pos
	p.state = Paused
	return nil
}

// SetDuration records the duration once the media metadata is known.
func (p *Player) SetDuration(d float64) error {
	if p.state == Unloaded {
		return p.invalid("set duration")
	}
	if d < 0 {
		d = 0
	}
	p.duration = d
	if d > 0 && p.position > d {
		p.position = d
	}
	return nil
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	switch {
	case v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	p.volume = v
}

// End handles end of media. The next entry, if any, is loaded paused; otherwise the
// player stays on the last entry in the Ended state.
func (p *Player) End() error {
	switch p.state {
	case Unloaded:
		return p.invalid("end")
	case Ended:
		return nil
	}

	if p.HasNext() {
		return p.Select(p.index + 1)
	}
	p.state = Ended
	p.position = p.duration
	return nil
}

func (p *Player) invalid(op string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, op, p.state)
}
