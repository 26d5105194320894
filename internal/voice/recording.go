package voice

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const transcribeTimeout = 5 * time.Minute

type Participant struct {
	UserID   string    `json:"id"`
	Name     string    `json:"name"`
	LastSeen time.Time `json:"last_timestamp"`
}

// Recording describes one capture session in a guild.
type Recording struct {
	GuildID      string
	SessionID    string
	Dir          string
	PCMPath      string
	WAVPath      string
	StartedAt    time.Time
	Duration     time.Duration
	Participants map[string]Participant
}

// TranscriptPath is where the plain transcript of the recording goes.
func (r Recording) TranscriptPath() string {
	return strings.TrimSuffix(r.WAVPath, ".wav") + "_transcript.txt"
}

func (r Recording) TimestampedPath() string {
	return strings.TrimSuffix(r.WAVPath, ".wav") + "_timestamped.txt"
}

func (r Recording) UsersPath() string {
	return strings.TrimSuffix(r.WAVPath, ".wav") + "_users.json"
}

// SortedParticipants orders participants by name, then ID.
func (r Recording) SortedParticipants() []Participant {
	out := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

type activeRecording struct {
	Recording
	file *os.File
	buf  *bufio.Writer
}

func newSessionID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// sessionDir is <sessionsDir>/guild_<id>/<session>.
func (m *Manager) sessionDir(guildID, sessionID string) string {
	return filepath.Join(m.sessionsDir, "guild_"+guildID, sessionID)
}

// StartRecording begins capturing decoded voice into a new session
// directory and returns the session ID.
func (m *Manager) StartRecording(guildID string) (string, error) {
	conn := m.conn(guildID)
	if conn == nil {
		return "", fmt.Errorf("%w in guild %s", ErrNotConnected, guildID)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if conn.rec != nil {
		return "", fmt.Errorf("%w in guild %s", ErrAlreadyRecording, guildID)
	}

	started := m.now()
	sessionID := m.newID()
	dir := m.sessionDir(guildID, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}

	base := filepath.Join(dir, "recording_"+started.Format("20060102_150405"))
	f, err := os.Create(base + ".pcm")
	if err != nil {
		return "", fmt.Errorf("create recording file: %w", err)
	}

	conn.rec = &activeRecording{
		Recording: Recording{
			GuildID:      guildID,
			SessionID:    sessionID,
			Dir:          dir,
			PCMPath:      base + ".pcm",
			WAVPath:      base + ".wav",
			StartedAt:    started,
			Participants: make(map[string]Participant),
		},
		file: f,
		buf:  bufio.NewWriter(f),
	}

	m.log.WithFields(log.Fields{"guild_id": guildID, "session_id": sessionID}).Info("started recording")
	return sessionID, nil
}

// capture appends 16-bit little-endian PCM for the speaker behind ssrc.
func (c *connection) capture(ssrc uint32, pcm []int16, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec == nil {
		return nil
	}

	if userID, ok := c.ssrcUsers[ssrc]; ok {
		p, seen := c.rec.Participants[userID]
		if !seen {
			p = Participant{UserID: userID, Name: c.displayName(userID)}
		}
		p.LastSeen = at
		c.rec.Participants[userID] = p
	}
	return binary.Write(c.rec.buf, binary.LittleEndian, pcm)
}

// StopRecording closes the capture and finalizes it in the background:
// WAV conversion, transcription and a ledger entry.
func (m *Manager) StopRecording(guildID string) (Recording, error) {
	conn := m.conn(guildID)
	if conn == nil {
		return Recording{}, fmt.Errorf("%w in guild %s", ErrNotConnected, guildID)
	}

	conn.mu.Lock()
	active := conn.rec
	conn.rec = nil
	conn.mu.Unlock()
	if active == nil {
		return Recording{}, fmt.Errorf("%w in guild %s", ErrNotRecording, guildID)
	}

	flushErr := active.buf.Flush()
	closeErr := active.file.Close()
	rec := active.Recording
	rec.Duration = m.now().Sub(rec.StartedAt)
	if flushErr != nil || closeErr != nil {
		m.log.WithFields(log.Fields{"flush": flushErr, "close": closeErr}).Error("closing recording file")
	}

	if len(rec.Participants) > 0 {
		if err := writeUsers(rec); err != nil {
			m.log.WithError(err).Warn("saving participant map")
		}
	}

	m.log.WithFields(log.Fields{
		"guild_id":   guildID,
		"session_id": rec.SessionID,
		"duration":   rec.Duration.Round(time.Millisecond).String(),
	}).Info("stopped recording")

	m.finishing.Add(1)
	go func() {
		defer m.finishing.Done()
		if _, err := m.finalize(context.Background(), rec); err != nil {
			m.log.WithError(err).WithField("session_id", rec.SessionID).Error("finalizing recording")
		}
	}()
	return rec, nil
}

// finalize converts, transcribes and records one stopped recording. It
// returns the transcript path, or "" when transcription was skipped.
func (m *Manager) finalize(ctx context.Context, rec Recording) (string, error) {
	info, err := os.Stat(rec.PCMPath)
	if err != nil {
		return "", fmt.Errorf("recording file: %w", err)
	}
	if info.Size() == 0 {
		m.log.WithField("session_id", rec.SessionID).Warn("no audio captured, skipping transcription")
		return "", nil
	}

	if err := m.convert(ctx, rec.PCMPath, rec.WAVPath); err != nil {
		return "", err
	}
	os.Remove(rec.PCMPath)

	if m.transcriber == nil {
		m.log.Warn("transcription skipped, no transcriber configured")
		return "", nil
	}

	wav, err := os.Open(rec.WAVPath)
	if err != nil {
		return "", fmt.Errorf("open wav: %w", err)
	}
	defer wav.Close()

	tctx, cancel := context.WithTimeout(ctx, transcribeTimeout)
	defer cancel()
	result, err := m.transcriber.SpeechToText(tctx, wav)
	if err != nil {
		return "", err
	}

	at := m.now()
	transcriptPath := rec.TranscriptPath()
	if err := os.WriteFile(transcriptPath, []byte(renderTranscript(rec, result.Text, at)), 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	hasTimestamped := len(result.Segments) > 0
	if hasTimestamped {
		if err := os.WriteFile(rec.TimestampedPath(), []byte(renderTimestamped(rec, result.Segments, at)), 0o644); err != nil {
			return "", fmt.Errorf("write timestamped transcript: %w", err)
		}
	}
	m.log.WithField("path", transcriptPath).Info("transcription saved")

	if m.ledger != nil {
		guildID, err := strconv.ParseInt(rec.GuildID, 10, 64)
		if err != nil {
			return transcriptPath, fmt.Errorf("guild id %q: %w", rec.GuildID, err)
		}
		participants := make(map[string]string, len(rec.Participants))
		for id, p := range rec.Participants {
			participants[id] = p.Name
		}
		ok := m.ledger.SaveTranscriptMetadata(guildID, rec.SessionID, transcriptPath, map[string]any{
			"session_id":      rec.SessionID,
			"duration":        rec.Duration.Seconds(),
			"participants":    participants,
			"has_timestamped": hasTimestamped,
		})
		if !ok {
			m.log.WithField("session_id", rec.SessionID).Warn("transcript metadata not saved")
		}
	}
	return transcriptPath, nil
}

func writeUsers(rec Recording) error {
	data, err := json.MarshalIndent(rec.Participants, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(rec.UsersPath(), data, 0o644)
}
