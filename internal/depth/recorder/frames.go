package recorder

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/banshee-data/depthframe/internal/depth/capture"
	"github.com/banshee-data/depthframe/internal/depth/imaging"
	"github.com/banshee-data/depthframe/internal/depth/skeleton"
)

// RecordFrame stores one frame under its session. The session must already
// exist.
func (s *Store) RecordFrame(f capture.Frame) error {
	var (
		colorW, colorH int
		colorGz        []byte
		depthW, depthH int
		depthGz        []byte
		skeletons      []byte
		err            error
	)

	if f.HasColor() {
		img := f.ColorSurface()
		colorW, colorH = img.Bounds().Dx(), img.Bounds().Dy()
		if colorGz, err = compress(imaging.SurfaceToBGRA(img)); err != nil {
			return fmt.Errorf("compress colour: %w", err)
		}
	}
	if f.HasDepth() {
		b := f.DepthBounds()
		depthW, depthH = b.Dx(), b.Dy()
		if depthGz, err = compress(encodeDepth(f.DepthValues())); err != nil {
			return fmt.Errorf("compress depth: %w", err)
		}
	}
	if f.HasSkeletons() {
		if skeletons, err = json.Marshal(f.Skeletons()); err != nil {
			return fmt.Errorf("encode skeletons: %w", err)
		}
	}

	_, err = s.db.Exec(
		`INSERT INTO frames (
			session_id, frame_id, captured_at_ns, color_width, color_height, color_gz,
			depth_width, depth_height, depth_gz, skeletons_json, user_count, tracked_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.SessionID(), f.FrameID(), f.Timestamp().UnixNano(), colorW, colorH, colorGz,
		depthW, depthH, depthGz, nullableText(skeletons), f.UserCount(), f.TrackedSkeletonCount(),
	)
	if err != nil {
		return fmt.Errorf("insert frame %d of session %s: %w", f.FrameID(), f.SessionID(), err)
	}
	tracef("session %s frame %d stored (%d colour bytes, %d depth bytes)",
		f.SessionID(), f.FrameID(), len(colorGz), len(depthGz))
	return nil
}

func nullableText(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

// FrameCount returns how many frames a session holds.
func (s *Store) FrameCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM frames WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// EachFrame decodes the frames of a session in frame order and passes each
// to fn. Iteration stops at the first error fn returns. fn must not use
// the store: the single connection is busy until iteration ends.
func (s *Store) EachFrame(sessionID string, fn func(capture.Frame) error) error {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}

	rows, err := s.db.Query(
		`SELECT frame_id, captured_at_ns, color_width, color_height, color_gz,
			depth_width, depth_height, depth_gz, skeletons_json
		FROM frames WHERE session_id = ? ORDER BY frame_id`, sessionID)
	if err != nil {
		return fmt.Errorf("query frames of %s: %w", sessionID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			frameID, capturedNs int64
			colorW, colorH      int
			colorGz             []byte
			depthW, depthH      int
			depthGz             []byte
			skeletonsJSON       *string
		)
		if err := rows.Scan(&frameID, &capturedNs, &colorW, &colorH, &colorGz,
			&depthW, &depthH, &depthGz, &skeletonsJSON); err != nil {
			return fmt.Errorf("scan frame: %w", err)
		}

		f, err := decodeFrame(sess, frameID, time.Unix(0, capturedNs),
			colorW, colorH, colorGz, depthW, depthH, depthGz, skeletonsJSON)
		if err != nil {
			return fmt.Errorf("frame %d of session %s: %w", frameID, sessionID, err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return rows.Err()
}

// LoadFrames returns every frame of a session in frame order.
func (s *Store) LoadFrames(sessionID string) ([]capture.Frame, error) {
	var out []capture.Frame
	err := s.EachFrame(sessionID, func(f capture.Frame) error {
		out = append(out, f)
		return nil
	})
	return out, err
}

func decodeFrame(sess Session, frameID int64, ts time.Time,
	colorW, colorH int, colorGz []byte,
	depthW, depthH int, depthGz []byte,
	skeletonsJSON *string,
) (capture.Frame, error) {
	var (
		color     *image.NRGBA
		depth     *imaging.DepthChannel
		skeletons []skeleton.Skeleton
	)

	if colorGz != nil {
		raw, err := decompress(colorGz)
		if err != nil {
			return capture.Frame{}, fmt.Errorf("colour: %w", err)
		}
		img, err := imaging.ColorSurfaceFromBGRA(colorW, colorH, raw)
		if err != nil {
			return capture.Frame{}, err
		}
		color = img
	}
	if depthGz != nil {
		raw, err := decompress(depthGz)
		if err != nil {
			return capture.Frame{}, fmt.Errorf("depth: %w", err)
		}
		values, err := decodeDepth(raw)
		if err != nil {
			return capture.Frame{}, err
		}
		if depth, err = imaging.DepthChannelFromBuffer(depthW, depthH, values); err != nil {
			return capture.Frame{}, err
		}
	}
	if skeletonsJSON != nil {
		if err := json.Unmarshal([]byte(*skeletonsJSON), &skeletons); err != nil {
			return capture.Frame{}, fmt.Errorf("skeletons: %w", err)
		}
		restoreMatrices(skeletons)
	}

	return capture.NewFrame(frameID, sess.DeviceID, sess.ID, ts, color, depth, skeletons), nil
}

// restoreMatrices recomputes the rotation matrices, which are not stored.
func restoreMatrices(skeletons []skeleton.Skeleton) {
	for _, sk := range skeletons {
		for j, b := range sk {
			b.RotationMatrix = skeleton.RotationMatrix(b.Rotation)
			b.AbsoluteRotationMatrix = skeleton.RotationMatrix(b.AbsoluteRotation)
			sk[j] = b
		}
	}
}

func encodeDepth(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

func decodeDepth(raw []byte) ([]uint16, error) {
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("depth payload has odd length %d", len(raw))
	}
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return out, nil
}

func compress(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
