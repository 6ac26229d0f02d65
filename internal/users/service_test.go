package users

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow implements pgx.Row with a custom scan function.
type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r *fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

// fakeDBTX implements DBTX for unit testing.
type fakeDBTX struct {
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (d *fakeDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if d.execFunc != nil {
		return d.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (d *fakeDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if d.queryFunc != nil {
		return d.queryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (d *fakeDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.queryRowFunc != nil {
		return d.queryRowFunc(ctx, sql, args...)
	}
	return &fakeRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

// fakeRows implements pgx.Rows over a list of scan functions.
type fakeRows struct {
	rows []func(dest ...any) error
	idx  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { return r.idx < len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error {
	fn := r.rows[r.idx]
	r.idx++
	return fn(dest...)
}
func (r *fakeRows) Values() ([]any, error) { return nil, nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

func makeUserRow(profileID, phone, name string, consent bool, email string) *fakeRow {
	return &fakeRow{
		scanFunc: func(dest ...any) error {
			if len(dest) < 8 {
				return pgx.ErrNoRows
			}
			*dest[0].(*string) = profileID
			*dest[1].(*string) = phone
			*dest[2].(*pgtype.Text) = pgtype.Text{String: name, Valid: name != ""}
			*dest[3].(*pgtype.Text) = pgtype.Text{String: email, Valid: email != ""}
			*dest[4].(*bool) = consent
			*dest[5].(*string) = "en"
			*dest[6].(*time.Time) = time.Now()
			*dest[7].(*time.Time) = time.Now()
			return nil
		},
	}
}

func TestGetByProfileIDNotFound(t *testing.T) {
	svc := NewService(nil, &fakeDBTX{})

	_, err := svc.GetByProfileID(context.Background(), "p-1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetOrCreate(t *testing.T) {
	var gotArgs []any
	db := &fakeDBTX{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			gotArgs = args
			return makeUserRow(args[0].(string), args[1].(string), args[2].(string), false, "")
		},
	}
	svc := NewService(nil, db)

	u, err := svc.GetOrCreate(context.Background(), " +5551234567 ", "Maria")
	require.NoError(t, err)

	assert.Equal(t, "+5551234567", u.PhoneNumber)
	assert.Equal(t, "Maria", u.Name)
	assert.False(t, u.ConsentAccepted)
	assert.Empty(t, u.Email)
	require.Len(t, gotArgs, 3)
	assert.NotEmpty(t, gotArgs[0])
}

func TestGetOrCreateRequiresPhone(t *testing.T) {
	svc := NewService(nil, &fakeDBTX{})

	_, err := svc.GetOrCreate(context.Background(), "  ", "Maria")
	assert.Error(t, err)
}

func TestAcceptConsentNotFound(t *testing.T) {
	db := &fakeDBTX{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}
	svc := NewService(nil, db)

	err := svc.AcceptConsent(context.Background(), "p-1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUpdateEmail(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &fakeDBTX{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			gotArgs = args
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	svc := NewService(nil, db)

	require.NoError(t, svc.UpdateEmail(context.Background(), "p-1", " a@b.com "))
	assert.Contains(t, gotSQL, "SET email")
	assert.Equal(t, []any{"p-1", "a@b.com"}, gotArgs)
}

func TestRecentInteractionsChronological(t *testing.T) {
	makeInteraction := func(q, r string, at time.Time) func(dest ...any) error {
		return func(dest ...any) error {
			*dest[0].(*string) = "p-1"
			*dest[1].(*string) = q
			*dest[2].(*string) = r
			*dest[3].(*time.Time) = at
			return nil
		}
	}

	now := time.Now()
	db := &fakeDBTX{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			// the query orders newest first
			return &fakeRows{rows: []func(dest ...any) error{
				makeInteraction("second", "two", now),
				makeInteraction("first", "one", now.Add(-time.Minute)),
			}}, nil
		},
	}
	svc := NewService(nil, db)

	got, err := svc.RecentInteractions(context.Background(), "p-1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Question)
	assert.Equal(t, "second", got[1].Question)
}
