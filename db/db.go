package db

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rqlite/gorqlite"
)

func New(conn *gorqlite.Connection) *Queries {
	return &Queries{
		conn: conn,
	}
}

type Queries struct {
	conn *gorqlite.Connection
}

// SessionID identifies a form filling session. Partition is the owner
// of the session, taken from the API key used to create it.
type SessionID struct {
	Partition string
	ID        string
}

func (id SessionID) String() string {
	return fmt.Sprintf("%s:%s", id.Partition, id.ID)
}

// Field is a fillable form field located on the first page of the PDF.
// X and Y are PDF points with the origin at the bottom left.
type Field struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type Session struct {
	SessionID
	PDF           []byte
	Plan          []Field
	Answers       map[string]string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// Missing returns the plan labels that have no answer yet, in plan order.
// The result is never nil, so it serializes to a JSON array.
func (s Session) Missing() (labels []string) {
	labels = []string{}
	for _, f := range s.Plan {
		if _, ok := s.Answers[f.Label]; !ok {
			labels = append(labels, f.Label)
		}
	}
	return labels
}

func (q *Queries) SessionPut(ctx context.Context, s Session) (err error) {
	planJSON, err := json.Marshal(s.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	answersJSON, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	stmt := gorqlite.ParameterizedStatement{
		Query: `insert into session (id, partition, pdf, plan, answers, created_at, last_updated_at)
values (?, ?, ?, ?, ?, ?, ?)
on conflict(id) do update
set
    pdf = excluded.pdf,
    plan = excluded.plan,
    answers = excluded.answers,
    last_updated_at = excluded.last_updated_at
`,
		Arguments: []any{s.ID, s.Partition, base64.StdEncoding.EncodeToString(s.PDF), string(planJSON), string(answersJSON), s.CreatedAt, s.LastUpdatedAt},
	}
	if _, err = q.conn.WriteOneParameterizedContext(ctx, stmt); err != nil {
		return err
	}
	return nil
}

func (q *Queries) SessionGet(ctx context.Context, id SessionID) (s Session, ok bool, err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `select id, partition, pdf, plan, answers, created_at, last_updated_at from session where id = ? and partition = ?`,
		Arguments: []any{id.ID, id.Partition},
	}
	result, err := q.conn.QueryOneParameterizedContext(ctx, stmt)
	if err != nil {
		return Session{}, false, err
	}
	if !result.Next() {
		return Session{}, false, nil
	}
	var pdfBase64, planJSON, answersJSON string
	if err = result.Scan(&s.ID, &s.Partition, &pdfBase64, &planJSON, &answersJSON, &s.CreatedAt, &s.LastUpdatedAt); err != nil {
		return Session{}, false, err
	}
	if s.PDF, err = base64.StdEncoding.DecodeString(pdfBase64); err != nil {
		return Session{}, false, fmt.Errorf("failed to decode pdf: %w", err)
	}
	if err = json.Unmarshal([]byte(planJSON), &s.Plan); err != nil {
		return Session{}, false, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	if err = json.Unmarshal([]byte(answersJSON), &s.Answers); err != nil {
		return Session{}, false, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	return s, true, nil
}

type SessionAnswersMergeArgs struct {
	SessionID
	Answers       map[string]string
	LastUpdatedAt time.Time
}

// SessionAnswersMerge merges the given answers into the session,
// overwriting any previous value for the same label. It returns the
// session state after the merge.
func (q *Queries) SessionAnswersMerge(ctx context.Context, args SessionAnswersMergeArgs) (s Session, ok bool, err error) {
	s, ok, err = q.SessionGet(ctx, args.SessionID)
	if err != nil || !ok {
		return s, ok, err
	}
	for label, value := range args.Answers {
		s.Answers[label] = value
	}
	answersJSON, err := json.Marshal(s.Answers)
	if err != nil {
		return s, true, fmt.Errorf("failed to marshal answers: %w", err)
	}
	stmt := gorqlite.ParameterizedStatement{
		Query:     `update session set answers = ?, last_updated_at = ? where id = ? and partition = ?`,
		Arguments: []any{string(answersJSON), args.LastUpdatedAt, args.ID, args.Partition},
	}
	if _, err = q.conn.WriteOneParameterizedContext(ctx, stmt); err != nil {
		return s, true, err
	}
	s.LastUpdatedAt = args.LastUpdatedAt
	return s, true, nil
}

func (q *Queries) SessionDelete(ctx context.Context, id SessionID) (err error) {
	stmt := gorqlite.ParameterizedStatement{
		Query:     `delete from session where id = ? and partition = ?`,
		Arguments: []any{id.ID, id.Partition},
	}
	if _, err = q.conn.WriteOneParameterizedContext(ctx, stmt); err != nil {
		return err
	}
	return nil
}
