// internal/voice/manager.go
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"bishop-bot/internal/ai"
	"bishop-bot/internal/logging"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
	"layeh.com/gopus"
)

const (
	sampleRate = 48000
	channels   = 2
	frameSize  = 960 // 20ms at 48kHz

	DefaultIdleTimeout = 5 * time.Minute
)

var (
	ErrNotConnected     = errors.New("not connected to a voice channel")
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
)

// Transcriber turns a WAV stream into text; *ai.Service satisfies it.
type Transcriber interface {
	SpeechToText(ctx context.Context, audio io.Reader) (ai.Transcription, error)
}

// Ledger records finished transcripts; *database.Store satisfies it.
type Ledger interface {
	SaveTranscriptMetadata(guildID int64, sessionID, filePath string, metadata map[string]any) bool
}

// frameEncoder is the part of *gopus.Encoder playback uses.
type frameEncoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

type connection struct {
	vc        *discordgo.VoiceConnection
	session   *discordgo.Session
	guildID   string
	channelID string
	encoder   frameEncoder

	mu           sync.Mutex
	lastActivity time.Time
	ssrcUsers    map[uint32]string
	decoders     map[uint32]*gopus.Decoder
	rec          *activeRecording
	playing      *playback

	// serializes Play so only one stream uses the encoder
	playMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

type Manager struct {
	sessionsDir string
	transcriber Transcriber
	ledger      Ledger
	idleTimeout time.Duration

	mu    sync.RWMutex
	conns map[string]*connection

	// replaced in tests
	convert   func(ctx context.Context, pcmPath, wavPath string) error
	now       func() time.Time
	newID     func() string
	finishing sync.WaitGroup

	log *log.Entry
}

// NewManager returns a manager that writes sessions under sessionsDir.
// A nil transcriber disables transcription; recordings are still kept.
func NewManager(sessionsDir string, transcriber Transcriber, ledger Ledger) *Manager {
	return &Manager{
		sessionsDir: sessionsDir,
		transcriber: transcriber,
		ledger:      ledger,
		idleTimeout: DefaultIdleTimeout,
		conns:       make(map[string]*connection),
		convert:     pcmToWav,
		now:         time.Now,
		newID:       newSessionID,
		log:         logging.Component("voice"),
	}
}

// Join connects to channelID, replacing any existing connection in the guild.
func (m *Manager) Join(s *discordgo.Session, guildID, channelID string) error {
	if m.IsConnected(guildID) {
		if err := m.Leave(guildID); err != nil {
			m.log.WithError(err).Warnf("leaving previous channel in guild %s", guildID)
		}
	}

	vc, err := s.ChannelVoiceJoin(guildID, channelID, false, false)
	if err != nil {
		return fmt.Errorf("join voice channel: %w", err)
	}
	if err := waitReady(vc, 10*time.Second); err != nil {
		vc.Disconnect()
		return err
	}

	encoder, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		vc.Disconnect()
		return fmt.Errorf("create opus encoder: %w", err)
	}
	encoder.SetBitrate(96000)

	ctx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		vc:           vc,
		session:      s,
		guildID:      guildID,
		channelID:    channelID,
		encoder:      encoder,
		lastActivity: m.now(),
		ssrcUsers:    make(map[uint32]string),
		decoders:     make(map[uint32]*gopus.Decoder),
		ctx:          ctx,
		cancel:       cancel,
	}
	vc.AddHandler(func(_ *discordgo.VoiceConnection, vs *discordgo.VoiceSpeakingUpdate) {
		conn.mapSpeaker(uint32(vs.SSRC), vs.UserID)
	})

	m.mu.Lock()
	m.conns[guildID] = conn
	m.mu.Unlock()

	go m.listen(conn)

	m.log.WithFields(log.Fields{"guild_id": guildID, "channel_id": channelID}).Info("joined voice channel")
	return nil
}

func waitReady(vc *discordgo.VoiceConnection, timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			return fmt.Errorf("voice connection timeout")
		case <-ticker.C:
			vc.RLock()
			ready := vc.Ready
			vc.RUnlock()
			if ready {
				return nil
			}
		}
	}
}

// Leave disconnects from the guild. An active recording is stopped and
// finalized first.
func (m *Manager) Leave(guildID string) error {
	if m.IsRecording(guildID) {
		if _, err := m.StopRecording(guildID); err != nil {
			m.log.WithError(err).Warnf("stopping recording before leaving guild %s", guildID)
		}
	}

	m.mu.Lock()
	conn, ok := m.conns[guildID]
	delete(m.conns, guildID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w in guild %s", ErrNotConnected, guildID)
	}

	conn.cancel()
	if conn.vc != nil {
		if err := conn.vc.Disconnect(); err != nil {
			m.log.WithError(err).Warn("voice disconnect")
		}
	}

	m.log.WithField("guild_id", guildID).Info("left voice channel")
	return nil
}

func (m *Manager) IsConnected(guildID string) bool {
	return m.conn(guildID) != nil
}

func (m *Manager) IsRecording(guildID string) bool {
	conn := m.conn(guildID)
	if conn == nil {
		return false
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	return conn.rec != nil
}

// ConnectedGuilds lists guild IDs with a live voice connection, sorted.
func (m *Manager) ConnectedGuilds() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.conns))
	for id := range m.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown leaves every channel and waits for pending transcriptions.
func (m *Manager) Shutdown() {
	for _, id := range m.ConnectedGuilds() {
		m.Leave(id)
	}
	m.finishing.Wait()
}

func (m *Manager) conn(guildID string) *connection {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[guildID]
}

func (m *Manager) listen(conn *connection) {
	m.log.WithField("guild_id", conn.guildID).Debug("listening for voice")
	idleCheck := time.NewTicker(30 * time.Second)
	defer idleCheck.Stop()

	for {
		select {
		case <-conn.ctx.Done():
			return
		case packet, ok := <-conn.vc.OpusRecv:
			if !ok {
				return
			}
			m.handlePacket(conn, packet)
		case <-idleCheck.C:
			if conn.idle(m.now(), m.idleTimeout) {
				m.log.WithField("guild_id", conn.guildID).Info("voice connection inactive, disconnecting")
				m.Leave(conn.guildID)
				return
			}
		}
	}
}

func (m *Manager) handlePacket(conn *connection, packet *discordgo.Packet) {
	if packet == nil || len(packet.Opus) == 0 || packet.SSRC == 0 {
		return
	}

	conn.mu.Lock()
	conn.lastActivity = m.now()
	recording := conn.rec != nil
	decoder := conn.decoders[packet.SSRC]
	conn.mu.Unlock()
	if !recording {
		return
	}

	if decoder == nil {
		var err error
		decoder, err = gopus.NewDecoder(sampleRate, channels)
		if err != nil {
			m.log.WithError(err).Error("create opus decoder")
			return
		}
		conn.mu.Lock()
		conn.decoders[packet.SSRC] = decoder
		conn.mu.Unlock()
	}

	pcm, err := decoder.Decode(packet.Opus, frameSize, false)
	if err != nil {
		if !strings.Contains(err.Error(), "invalid packet") {
			m.log.WithError(err).Debug("decode opus")
		}
		return
	}
	if err := conn.capture(packet.SSRC, pcm, m.now()); err != nil {
		m.log.WithError(err).Error("write recording")
	}
}

func (c *connection) mapSpeaker(ssrc uint32, userID string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	c.ssrcUsers[ssrc] = userID
	c.mu.Unlock()
}

// idle reports whether nothing was heard for longer than timeout. A
// recording connection is never idle.
func (c *connection) idle(now time.Time, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rec == nil && now.Sub(c.lastActivity) > timeout
}

// displayName resolves a member's name from the session state cache.
func (c *connection) displayName(userID string) string {
	if c.session == nil || c.session.State == nil {
		return userID
	}
	member, err := c.session.State.Member(c.guildID, userID)
	if err != nil || member == nil {
		return userID
	}
	if member.Nick != "" {
		return member.Nick
	}
	if member.User != nil {
		if member.User.GlobalName != "" {
			return member.User.GlobalName
		}
		return member.User.Username
	}
	return userID
}
