package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/geometry"
)

// Session describes one capture run: everything between a Device.Start and
// the matching stop.
type Session struct {
	ID              string                   `json:"id"`
	DeviceID        string                   `json:"device_id"`
	StartedAt       time.Time                `json:"started_at"`
	ColorResolution geometry.ImageResolution `json:"color_resolution"`
	DepthResolution geometry.ImageResolution `json:"depth_resolution"`
	Options         capture.DeviceOptions    `json:"options"`
	Notes           string                   `json:"notes,omitempty"`

	// FrameCount is filled in when the session is read back.
	FrameCount int `json:"frame_count"`
}

// NewSession describes a session started with opts. Resolutions of
// disabled streams are recorded as invalid.
func NewSession(sessionID, deviceID string, startedAt time.Time, opts capture.DeviceOptions) Session {
	s := Session{
		ID:              sessionID,
		DeviceID:        deviceID,
		StartedAt:       startedAt,
		ColorResolution: geometry.ResolutionInvalid,
		DepthResolution: geometry.ResolutionInvalid,
		Options:         opts,
	}
	if opts.ColorEnabled {
		s.ColorResolution = opts.ColorResolution
	}
	if opts.DepthEnabled {
		s.DepthResolution = opts.DepthResolution
	}
	return s
}

func resolutionColumn(r geometry.ImageResolution) string {
	if !r.IsValid() {
		return ""
	}
	return r.String()
}

func parseResolutionColumn(s string) (geometry.ImageResolution, error) {
	if s == "" {
		return geometry.ResolutionInvalid, nil
	}
	return geometry.ParseResolution(s)
}

// BeginSession inserts a session row. Session IDs are unique.
func (s *Store) BeginSession(sess Session) error {
	if sess.ID == "" {
		return errors.New("session id is required")
	}
	opts, err := json.Marshal(sess.Options)
	if err != nil {
		return fmt.Errorf("encode session options: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (
			session_id, device_id, started_at_ns, color_resolution,
			depth_resolution, options_json, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.DeviceID, sess.StartedAt.UnixNano(),
		resolutionColumn(sess.ColorResolution), resolutionColumn(sess.DepthResolution),
		string(opts), sess.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}
	opsf("session %s begun on device %s", sess.ID, sess.DeviceID)
	return nil
}

const sessionColumns = `
	s.session_id, s.device_id, s.started_at_ns, s.color_resolution,
	s.depth_resolution, s.options_json, s.notes,
	(SELECT COUNT(*) FROM frames f WHERE f.session_id = s.session_id)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess               Session
		startedNs          int64
		colorRes, depthRes string
		opts               string
	)
	if err := row.Scan(&sess.ID, &sess.DeviceID, &startedNs, &colorRes,
		&depthRes, &opts, &sess.Notes, &sess.FrameCount); err != nil {
		return Session{}, err
	}
	sess.StartedAt = time.Unix(0, startedNs)

	var err error
	if sess.ColorResolution, err = parseResolutionColumn(colorRes); err != nil {
		return Session{}, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	if sess.DepthResolution, err = parseResolutionColumn(depthRes); err != nil {
		return Session{}, fmt.Errorf("session %s: %w", sess.ID, err)
	}
	if err := json.Unmarshal([]byte(opts), &sess.Options); err != nil {
		return Session{}, fmt.Errorf("session %s options: %w", sess.ID, err)
	}
	return sess, nil
}

// GetSession returns the session with id, or ErrSessionNotFound.
func (s *Store) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions s WHERE s.session_id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// ListSessions returns every session, oldest first.
func (s *Store) ListSessions() ([]Session, error) {
	rows, err := s.db.Query(`SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at_ns, s.session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and its frames.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	opsf("session %s deleted", id)
	return nil
}
