package baas

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Query builds a request against one table of the data API.
type Query struct {
	client *Client
	table  string
	params url.Values
	single bool
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, params: url.Values{}}
}

// Select sets the returned columns; embedded resources use alias:table(cols).
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds an equality filter.
func (q *Query) Eq(column, value string) *Query {
	q.params.Add(column, "eq."+value)
	return q
}

// Order sorts by column.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.params.Add("order", column+"."+dir)
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Single expects exactly one row; zero rows yield ErrNoRows.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

func (q *Query) path() string {
	p := "/rest/v1/" + url.PathEscape(q.table)
	if encoded := q.params.Encode(); encoded != "" {
		p += "?" + encoded
	}
	return p
}

func (q *Query) headers(prefer string) map[string]string {
	h := map[string]string{}
	if prefer != "" {
		h["Prefer"] = prefer
	}
	if q.single {
		h["Accept"] = "application/vnd.pgrst.object+json"
	}
	return h
}

func (q *Query) send(ctx context.Context, op, method, prefer string, body, dest interface{}) error {
	_, err := q.client.do(ctx, request{
		operation: "rest." + op + "." + q.table,
		method:    method,
		path:      q.path(),
		body:      body,
		bearer:    AccessToken(ctx),
		headers:   q.headers(prefer),
	}, dest)
	return err
}

// Get reads rows into dest (a slice, or a struct when Single).
func (q *Query) Get(ctx context.Context, dest interface{}) error {
	return q.send(ctx, "select", http.MethodGet, "", nil, dest)
}

// Insert creates rows and decodes the stored representation into dest.
func (q *Query) Insert(ctx context.Context, body, dest interface{}) error {
	return q.send(ctx, "insert", http.MethodPost, "return=representation", body, dest)
}

// Update patches the filtered rows and decodes the result into dest.
func (q *Query) Update(ctx context.Context, body, dest interface{}) error {
	return q.send(ctx, "update", http.MethodPatch, "return=representation", body, dest)
}

// Delete removes the filtered rows.
func (q *Query) Delete(ctx context.Context) error {
	return q.send(ctx, "delete", http.MethodDelete, "", nil, nil)
}
