// Package timeline serves keyset-paginated post listings enriched with
// author data.
package timeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
	"github.com/tumbsky/tumbsky/internal/server/models"
	"github.com/tumbsky/tumbsky/internal/server/repositories/posts"
	"github.com/tumbsky/tumbsky/internal/server/repositories/repomanager"
)

const DefaultPageSize = 20

type Author struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarCID   string `json:"avatarCid,omitempty"`
}

type Item struct {
	URI       string          `json:"uri"`
	CID       string          `json:"cid"`
	Author    Author          `json:"author"`
	Text      string          `json:"text"`
	HasImages bool            `json:"hasImages"`
	HasEmbed  bool            `json:"hasEmbed"`
	EmbedData json.RawMessage `json:"embedData,omitempty"`
	Record    json.RawMessage `json:"record"`
	CreatedAt time.Time       `json:"createdAt"`
	IndexedAt time.Time       `json:"indexedAt"`
}

// Page is one slice of the listing. Cursor is empty on the last page.
type Page struct {
	Items  []Item `json:"items"`
	Cursor string `json:"cursor,omitempty"`
}

// Query selects a listing. An empty Owner lists every registered user's posts.
type Query struct {
	Owner  string
	Cursor string
}

// Engine answers timeline queries with at most three statements per page: the
// keyset scan and two bulk author lookups.
type Engine struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	pageSize    int
}

func NewEngine(db *sql.DB, m repomanager.RepositoryManager, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{db: db, repomanager: m, pageSize: pageSize}
}

func (e *Engine) Page(ctx context.Context, q Query) (*Page, error) {
	pq := posts.PageQuery{Owner: q.Owner, Limit: e.pageSize + 1}
	if q.Cursor != "" {
		k, err := DecodeCursor(q.Cursor)
		if err != nil {
			return nil, err
		}
		pq.After = &k
	}

	rows, err := e.repomanager.Posts(e.db).Page(ctx, pq)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: []Item{}}
	if len(rows) > e.pageSize {
		rows = rows[:e.pageSize]
		last := rows[len(rows)-1]
		page.Cursor = EncodeCursor(posts.Key{CreatedAt: last.CreatedAt, URI: last.URI})
	}
	if len(rows) == 0 {
		return page, nil
	}

	authors, err := e.authors(ctx, rows)
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		page.Items = append(page.Items, Item{
			URI:       p.URI,
			CID:       p.CID,
			Author:    authors[p.UserDID],
			Text:      p.Text,
			HasImages: p.HasImages,
			HasEmbed:  p.HasEmbed,
			EmbedData: p.EmbedData,
			Record:    p.Record,
			CreatedAt: p.CreatedAt.UTC(),
			IndexedAt: p.IndexedAt.UTC(),
		})
	}
	return page, nil
}

func (e *Engine) authors(ctx context.Context, rows []models.Post) (map[string]Author, error) {
	out := make(map[string]Author)
	var dids []string
	for _, p := range rows {
		if _, ok := out[p.UserDID]; ok {
			continue
		}
		out[p.UserDID] = Author{DID: p.UserDID, Handle: common.InvalidHandle}
		dids = append(dids, p.UserDID)
	}

	users, err := e.repomanager.Users(e.db).GetMany(ctx, dids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		a := out[u.DID]
		a.Handle = u.Handle
		out[u.DID] = a
	}

	profiles, err := e.repomanager.Profiles(e.db).GetMany(ctx, dids)
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		a := out[p.DID]
		a.DisplayName = p.DisplayName
		a.AvatarCID = p.AvatarCID
		out[p.DID] = a
	}
	return out, nil
}
