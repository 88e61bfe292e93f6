// Package media drives video loop playback and the prompt audio for
// the kiosk. Video frames are decoded with OpenCV and handed to the
// presenter; audio runs through a supervised external player process so
// a codec crash never takes the controller down.
package media

import (
	"fmt"
	"image"
	"os/exec"
	"sync"

	"gocv.io/x/gocv"

	"github.com/cmerch/kiosk/internal/log"
)

// Config holds the media assets and the audio player command.
type Config struct {
	// IdleVideo is the looping attraction animation.
	IdleVideo string `yaml:"idle_video"`

	// WavingVideo and WavingAudio play while greeting a visitor.
	WavingVideo string `yaml:"waving_video"`
	WavingAudio string `yaml:"waving_audio"`

	// ThankYouVideo is the play-once close-out clip.
	ThankYouVideo string `yaml:"thank_you_video"`

	// AudioPlayer is the external command used for audio playback.
	// %s placeholders are not supported; the file path is appended.
	AudioPlayer []string `yaml:"audio_player"`
}

// DefaultConfig returns the standard asset layout.
func DefaultConfig() Config {
	return Config{
		IdleVideo:     "assets/welcome-animation.mp4",
		WavingVideo:   "assets/hand-waving.mp4",
		WavingAudio:   "assets/hand-waving.mp3",
		ThankYouVideo: "assets/thank-you.mp4",
		AudioPlayer:   []string{"ffplay", "-nodisp", "-loglevel", "quiet", "-loop", "0"},
	}
}

// Player owns the active video source and the audio process.
type Player struct {
	cfg Config

	mu        sync.Mutex
	video     *gocv.VideoCapture
	videoPath string
	loop      bool
	finished  bool

	audioCmd *exec.Cmd

	// OnClipFinished fires once when a play-once clip reaches its end.
	// Called from the frame loop goroutine, inside NextFrame.
	OnClipFinished func()
}

// NewPlayer creates a player with no active media.
func NewPlayer(cfg Config) *Player {
	return &Player{cfg: cfg}
}

// Play starts looping the named video file, replacing any current one.
func (p *Player) Play(path string) error {
	return p.open(path, true)
}

// PlayOnce plays the named video file a single time; OnClipFinished
// fires when the last frame has been read.
func (p *Player) PlayOnce(path string) error {
	return p.open(path, false)
}

func (p *Player) open(path string, loop bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.videoPath == path && p.loop == loop && p.video != nil {
		return nil
	}
	p.closeVideoLocked()

	video, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return fmt.Errorf("open video %s: %w", path, err)
	}

	p.video = video
	p.videoPath = path
	p.loop = loop
	p.finished = false
	log.Info("video started", "path", path, "loop", loop)
	return nil
}

// NextFrame returns the next video frame as JPEG, sized to fit the
// display. Returns (nil, nil) when no video is active or a play-once
// clip has finished.
func (p *Player) NextFrame(width, height int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.video == nil || p.finished {
		return nil, nil
	}

	frame := gocv.NewMat()
	defer frame.Close()

	if ok := p.video.Read(&frame); !ok || frame.Empty() {
		if !p.loop {
			p.finished = true
			cb := p.OnClipFinished
			if cb != nil {
				// Release the lock around the callback: it typically
				// signals the state machine, never back into Player.
				p.mu.Unlock()
				cb()
				p.mu.Lock()
			}
			return nil, nil
		}
		// Rewind and keep looping.
		p.video.Set(gocv.VideoCapturePosFrames, 0)
		if ok := p.video.Read(&frame); !ok || frame.Empty() {
			return nil, fmt.Errorf("rewind %s: read failed", p.videoPath)
		}
	}

	if width > 0 && height > 0 && (frame.Cols() != width || frame.Rows() != height) {
		resized := gocv.NewMat()
		defer resized.Close()
		gocv.Resize(frame, &resized, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
		return encodeJPEG(resized)
	}
	return encodeJPEG(frame)
}

// PlayAudioLoop starts the looping prompt audio. A second call while
// audio is playing is a no-op.
func (p *Player) PlayAudioLoop(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.audioCmd != nil {
		return nil
	}
	if len(p.cfg.AudioPlayer) == 0 {
		return fmt.Errorf("no audio player configured")
	}

	args := append(append([]string{}, p.cfg.AudioPlayer[1:]...), path)
	cmd := exec.Command(p.cfg.AudioPlayer[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start audio player: %w", err)
	}
	p.audioCmd = cmd
	log.Info("audio loop started", "path", path)

	// Reap the process whenever it exits.
	go func() {
		cmd.Wait()
		p.mu.Lock()
		if p.audioCmd == cmd {
			p.audioCmd = nil
		}
		p.mu.Unlock()
	}()
	return nil
}

// StopAudio kills the audio player process if one is running.
func (p *Player) StopAudio() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopAudioLocked()
}

func (p *Player) stopAudioLocked() {
	if p.audioCmd != nil && p.audioCmd.Process != nil {
		p.audioCmd.Process.Kill()
	}
	p.audioCmd = nil
}

// StopAll stops audio and drops the active video.
func (p *Player) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopAudioLocked()
	p.closeVideoLocked()
}

func (p *Player) closeVideoLocked() {
	if p.video != nil {
		p.video.Close()
		p.video = nil
	}
	p.videoPath = ""
	p.finished = false
}

// Close releases all media resources.
func (p *Player) Close() {
	p.StopAll()
}

// Assets exposes the configured asset paths for the presenter.
func (p *Player) Assets() Config {
	return p.cfg
}

func encodeJPEG(m gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
