package ingest

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/tumbsky/tumbsky/internal/logging"
)

const (
	tapAdminUser     = "admin"
	tapChannelPath   = "/channel"
	maxTapFrameBytes = 4 << 20
)

var ErrBadTapURL = errors.New("tap url must use http, https, ws or wss")

// TapDialer connects to the Tap websocket channel.
type TapDialer struct {
	URL           string
	AdminPassword string
	HTTPClient    *http.Client
	Log           logging.Logger
}

type ackFrame struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

func (d *TapDialer) Dial(ctx context.Context) (Stream, error) {
	u, err := channelURL(d.URL)
	if err != nil {
		return nil, err
	}

	opts := &websocket.DialOptions{HTTPClient: d.HTTPClient, HTTPHeader: http.Header{}}
	if d.AdminPassword != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(tapAdminUser + ":" + d.AdminPassword))
		opts.HTTPHeader.Set("Authorization", "Basic "+creds)
	}

	conn, _, err := websocket.Dial(ctx, u, opts)
	if err != nil {
		return nil, fmt.Errorf("dial tap: %w", err)
	}
	conn.SetReadLimit(maxTapFrameBytes)

	log := d.Log
	if log == nil {
		log = logging.Nop{}
	}
	return &tapStream{conn: conn, log: log}, nil
}

type tapStream struct {
	conn *websocket.Conn
	log  logging.Logger
}

// Next returns the next frame. A frame that does not decode is skipped; if
// its id is readable it is still delivered, as an unknown event, so it gets
// acked.
func (s *tapStream) Next(ctx context.Context) (Delivery, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			return Delivery{}, err
		}
		if typ != websocket.MessageText {
			continue
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			var head struct {
				ID uint64 `json:"id"`
			}
			if json.Unmarshal(data, &head) != nil || head.ID == 0 {
				s.log.Warn(ctx, "dropping undecodable tap frame", "error", err)
				continue
			}
			s.log.Warn(ctx, "undecodable tap event", "id", head.ID, "error", err)
			ev = Event{ID: head.ID}
		}
		return Delivery{Event: ev, Ack: s.ack(ev.ID)}, nil
	}
}

func (s *tapStream) ack(id uint64) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return wsjson.Write(ctx, s.conn, ackFrame{Type: "ack", ID: id})
	}
}

func (s *tapStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// channelURL maps the configured Tap base URL to its websocket channel.
func channelURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadTapURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", ErrBadTapURL
	}
	if u.Host == "" {
		return "", ErrBadTapURL
	}
	if !strings.HasSuffix(u.Path, tapChannelPath) {
		u.Path = strings.TrimSuffix(u.Path, "/") + tapChannelPath
	}
	return u.String(), nil
}
