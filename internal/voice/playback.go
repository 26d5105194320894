package voice

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
)

// 960 samples * 2 channels * 2 bytes
const pcmFrameBytes = frameSize * channels * 2

// playback is one running stream; done closes once it has stopped using
// the connection's encoder.
type playback struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *playback) stop() {
	p.cancel()
	<-p.done
}

// Play streams an audio file into the guild's voice channel at volume
// (0..1, clamped). Any current playback is stopped first. Playback runs in
// the background; the returned error covers only the setup.
func (m *Manager) Play(guildID, path string, volume float64) error {
	conn := m.conn(guildID)
	if conn == nil {
		return fmt.Errorf("%w in guild %s", ErrNotConnected, guildID)
	}

	conn.playMu.Lock()
	defer conn.playMu.Unlock()
	conn.stopCurrent()

	ctx, cancel := context.WithCancel(conn.ctx)
	pcm, wait, err := decodeToPCM(ctx, path)
	if err != nil {
		cancel()
		return err
	}
	m.startStream(ctx, cancel, conn, path, pcm, wait, volume)

	m.log.WithFields(log.Fields{"guild_id": guildID, "path": path}).Info("playing sound")
	return nil
}

// startStream runs stream in the background and registers it as the
// connection's current playback. The caller holds conn.playMu and has
// already stopped the previous stream.
func (m *Manager) startStream(ctx context.Context, cancel context.CancelFunc, conn *connection, path string, pcm io.ReadCloser, wait func() error, volume float64) *playback {
	p := &playback{cancel: cancel, done: make(chan struct{})}
	conn.mu.Lock()
	conn.playing = p
	conn.mu.Unlock()

	go func() {
		defer close(p.done)
		defer conn.clearPlayback(p)
		defer cancel()

		err := m.stream(ctx, conn, pcm, volume)
		pcm.Close()
		if werr := wait(); err == nil {
			err = werr
		}
		entry := m.log.WithFields(log.Fields{"guild_id": conn.guildID, "path": path})
		if err != nil && !errors.Is(err, context.Canceled) {
			entry.WithError(err).Error("playback failed")
			return
		}
		entry.Debug("playback finished")
	}()
	return p
}

// StopPlayback cancels the current sound, reporting whether one was playing.
func (m *Manager) StopPlayback(guildID string) bool {
	conn := m.conn(guildID)
	if conn == nil {
		return false
	}
	return conn.stopCurrent()
}

// stopCurrent stops the running stream and waits for it to exit.
func (c *connection) stopCurrent() bool {
	c.mu.Lock()
	p := c.playing
	c.playing = nil
	c.mu.Unlock()
	if p == nil {
		return false
	}
	p.stop()
	return true
}

// clearPlayback forgets p if it is still the current stream.
func (c *connection) clearPlayback(p *playback) {
	c.mu.Lock()
	if c.playing == p {
		c.playing = nil
	}
	c.mu.Unlock()
}

func (m *Manager) stream(ctx context.Context, conn *connection, pcm io.Reader, volume float64) error {
	conn.vc.Speaking(true)
	defer conn.vc.Speaking(false)

	buf := make([]byte, pcmFrameBytes)
	for {
		n, err := io.ReadFull(pcm, buf)
		if err == io.EOF {
			return nil
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return fmt.Errorf("read pcm: %w", err)
		}
		// zero-pad the last partial frame
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}

		opus, encErr := conn.encoder.Encode(pcmFrame(buf, volume), frameSize, pcmFrameBytes)
		if encErr != nil {
			m.log.WithError(encErr).Debug("encode opus frame")
			continue
		}

		select {
		case conn.vc.OpusSend <- opus:
		case <-time.After(100 * time.Millisecond):
			m.log.Debug("timeout sending opus frame")
		case <-ctx.Done():
			return ctx.Err()
		}

		conn.mu.Lock()
		conn.lastActivity = m.now()
		conn.mu.Unlock()

		if err == io.ErrUnexpectedEOF {
			return nil
		}
	}
}

// pcmFrame converts little-endian s16 bytes to samples scaled by volume.
func pcmFrame(buf []byte, volume float64) []int16 {
	volume = math.Max(0, math.Min(1, volume))
	samples := make([]int16, len(buf)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = int16(float64(s) * volume)
	}
	return samples
}
