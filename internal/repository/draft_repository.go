package repository

import (
    "context"
    "crypto/rand"
    "database/sql"
    "encoding/hex"
    "encoding/json"
    "time"

    "github.com/shopspring/decimal"

    "github.com/s-411/tracker-onboarding/internal/model"
)

// DraftRepo provides data access to the draft_sessions table and owns
// the adoption transaction that converts a draft into permanent
// profile/entry rows.  All methods behave with respect to UTC
// timestamps – expiration comparisons are performed against
// UTC_TIMESTAMP() in the database, never against client clocks.
//
// Every method performs at most one attempt; retry policy belongs to
// the caller.
type DraftRepo struct {
    db  *sql.DB
    ttl time.Duration // lifetime of a new session
}

// NewDraftRepo returns a DraftRepo bound to the provided database.
// ttl controls how far in the future expires_at is set on creation.
func NewDraftRepo(db *sql.DB, ttl time.Duration) *DraftRepo {
    return &DraftRepo{db: db, ttl: ttl}
}

// randomToken generates a random hexadecimal string of length n*2.
// It populates the token column; crypto/rand ensures the token is
// unguessable.  For the 64 character token used here, n is 32.
func randomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}

// Create allocates a new draft session at step 1 with a fresh token
// and the configured TTL.  The returned session carries the token; it
// is the caller's job to hand it to the client and mirror it locally.
func (r *DraftRepo) Create(ctx context.Context) (*model.DraftSession, error) {
    token, err := randomToken(32)
    if err != nil {
        return nil, err
    }
    now := time.Now().UTC()
    expires := now.Add(r.ttl)
    const q = `INSERT INTO draft_sessions (token, step, expires_at) VALUES (?, ?, ?)`
    result, err := r.db.ExecContext(ctx, q, token, model.StepProfile, expires.Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return nil, err
    }
    return &model.DraftSession{
        ID:        uint64(id),
        Token:     token,
        Step:      model.StepProfile,
        ExpiresAt: expires,
        CreatedAt: now,
    }, nil
}

// Get fetches the session for a token.  It returns ErrDraftNotFound
// when no row exists, ErrDraftCompleted when the session was already
// adopted (logically deleted), and ErrDraftExpired when the TTL has
// passed.  Draft payloads are decoded from their JSON columns.
func (r *DraftRepo) Get(ctx context.Context, token string) (*model.DraftSession, error) {
    const q = `SELECT id, token, step, profile_json, entry_json, contact_email,
                      expires_at, completed_at, created_at, updated_at
               FROM draft_sessions WHERE token = ? LIMIT 1`
    var (
        d           model.DraftSession
        profileJSON sql.NullString
        entryJSON   sql.NullString
        email       sql.NullString
        completedAt sql.NullTime
    )
    err := r.db.QueryRowContext(ctx, q, token).Scan(
        &d.ID, &d.Token, &d.Step, &profileJSON, &entryJSON, &email,
        &d.ExpiresAt, &completedAt, &d.CreatedAt, &d.UpdatedAt,
    )
    if err == sql.ErrNoRows {
        return nil, ErrDraftNotFound
    }
    if err != nil {
        return nil, err
    }
    if completedAt.Valid {
        return nil, ErrDraftCompleted
    }
    if time.Now().UTC().After(d.ExpiresAt) {
        return nil, ErrDraftExpired
    }
    if profileJSON.Valid {
        var p model.ProfileDraft
        if err := json.Unmarshal([]byte(profileJSON.String), &p); err != nil {
            return nil, err
        }
        d.Profile = &p
    }
    if entryJSON.Valid {
        var e model.EntryDraft
        if err := json.Unmarshal([]byte(entryJSON.String), &e); err != nil {
            return nil, err
        }
        d.Entry = &e
    }
    if email.Valid {
        v := email.String
        d.ContactEmail = &v
    }
    return &d, nil
}

// SaveProfile stores the profile draft and advances the step to at
// least 2.  The update only touches live sessions; when no row is
// affected the failure is classified into the draft sentinels.
func (r *DraftRepo) SaveProfile(ctx context.Context, token string, p model.ProfileDraft) error {
    raw, err := json.Marshal(p)
    if err != nil {
        return err
    }
    const q = `UPDATE draft_sessions
               SET profile_json = ?, step = GREATEST(step, ?)
               WHERE token = ? AND completed_at IS NULL AND expires_at > UTC_TIMESTAMP()`
    result, err := r.db.ExecContext(ctx, q, string(raw), model.StepEntry, token)
    if err != nil {
        return err
    }
    return r.checkAffected(ctx, result, token, false)
}

// SaveEntry stores the entry draft and advances the step to at least 3.
// The profile_json guard enforces step ordering in the database: an
// entry can never exist on a session without a profile.
func (r *DraftRepo) SaveEntry(ctx context.Context, token string, e model.EntryDraft) error {
    raw, err := json.Marshal(e)
    if err != nil {
        return err
    }
    const q = `UPDATE draft_sessions
               SET entry_json = ?, step = GREATEST(step, ?)
               WHERE token = ? AND completed_at IS NULL AND expires_at > UTC_TIMESTAMP()
                 AND profile_json IS NOT NULL`
    result, err := r.db.ExecContext(ctx, q, string(raw), model.StepAccount, token)
    if err != nil {
        return err
    }
    return r.checkAffected(ctx, result, token, true)
}

// SetContactEmail records the email captured at the account step so the
// support path can reach the visitor if migration later fails.
func (r *DraftRepo) SetContactEmail(ctx context.Context, token, email string) error {
    const q = `UPDATE draft_sessions SET contact_email = ?
               WHERE token = ? AND completed_at IS NULL AND expires_at > UTC_TIMESTAMP()`
    result, err := r.db.ExecContext(ctx, q, email, token)
    if err != nil {
        return err
    }
    return r.checkAffected(ctx, result, token, false)
}

// UpdateStep explicitly advances the step counter.  The counter is
// monotonic: GREATEST keeps a concurrent late write from moving the
// session backwards.
func (r *DraftRepo) UpdateStep(ctx context.Context, token string, step int) error {
    const q = `UPDATE draft_sessions SET step = GREATEST(step, ?)
               WHERE token = ? AND completed_at IS NULL AND expires_at > UTC_TIMESTAMP()`
    result, err := r.db.ExecContext(ctx, q, step, token)
    if err != nil {
        return err
    }
    return r.checkAffected(ctx, result, token, false)
}

// checkAffected turns a zero-row UPDATE into the precise sentinel by
// re-reading the session's state flags.  needProfile marks updates
// whose WHERE clause also required profile_json to be present.
func (r *DraftRepo) checkAffected(ctx context.Context, result sql.Result, token string, needProfile bool) error {
    n, err := result.RowsAffected()
    if err != nil {
        return err
    }
    if n > 0 {
        return nil
    }
    // MySQL reports zero affected rows when the new values equal the old
    // ones, so distinguish "matched but unchanged" from "no live row".
    const q = `SELECT completed_at IS NOT NULL, expires_at <= UTC_TIMESTAMP(), profile_json IS NOT NULL
               FROM draft_sessions WHERE token = ? LIMIT 1`
    var completed, expired, hasProfile bool
    err = r.db.QueryRowContext(ctx, q, token).Scan(&completed, &expired, &hasProfile)
    if err == sql.ErrNoRows {
        return ErrDraftNotFound
    }
    if err != nil {
        return err
    }
    switch {
    case completed:
        return ErrDraftCompleted
    case expired:
        return ErrDraftExpired
    case needProfile && !hasProfile:
        return ErrProfileMissing
    }
    return nil
}

// Adopt converts the draft identified by token into permanent profile
// and entry rows owned by userID and marks the session completed, all
// as one transaction.  Observers therefore never see a half-migrated
// state: either the profile, the entry and completed_at all exist, or
// none do.  The session row is locked FOR UPDATE so two concurrent
// adoptions of the same token serialize; the loser reads completed_at
// and gets ErrDraftCompleted instead of inserting duplicates.
//
// On success it returns the new profile and entry IDs as assigned by
// the database.
func (r *DraftRepo) Adopt(ctx context.Context, token string, userID uint64) (uint64, uint64, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const sel = `SELECT id, profile_json, entry_json, completed_at, expires_at <= UTC_TIMESTAMP()
                 FROM draft_sessions WHERE token = ? FOR UPDATE`
    var (
        sessionID   uint64
        profileJSON sql.NullString
        entryJSON   sql.NullString
        completedAt sql.NullTime
        expired     bool
    )
    err = tx.QueryRowContext(ctx, sel, token).Scan(&sessionID, &profileJSON, &entryJSON, &completedAt, &expired)
    if err == sql.ErrNoRows {
        return 0, 0, ErrDraftNotFound
    }
    if err != nil {
        return 0, 0, err
    }
    if completedAt.Valid {
        return 0, 0, ErrDraftCompleted
    }
    if expired {
        return 0, 0, ErrDraftExpired
    }
    if !profileJSON.Valid {
        return 0, 0, ErrProfileMissing
    }
    if !entryJSON.Valid {
        return 0, 0, ErrDraftNotFound
    }

    var p model.ProfileDraft
    if err := json.Unmarshal([]byte(profileJSON.String), &p); err != nil {
        return 0, 0, err
    }
    var e model.EntryDraft
    if err := json.Unmarshal([]byte(entryJSON.String), &e); err != nil {
        return 0, 0, err
    }

    const insProfile = `INSERT INTO profiles (user_id, name, age, rating, ethnicity, hair_color, location)
                        VALUES (?, ?, ?, ?, ?, ?, ?)`
    pres, err := tx.ExecContext(ctx, insProfile, userID, p.Name, p.Age, p.Rating, p.Ethnicity, p.HairColor, p.Location)
    if err != nil {
        return 0, 0, err
    }
    profileID, err := pres.LastInsertId()
    if err != nil {
        return 0, 0, err
    }

    cents := e.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
    const insEntry = `INSERT INTO entries (user_id, entry_date, amount_cents, duration_minutes, nuts)
                      VALUES (?, ?, ?, ?, ?)`
    eres, err := tx.ExecContext(ctx, insEntry, userID, e.Date, uint32(cents), e.DurationMinutes, e.Nuts)
    if err != nil {
        return 0, 0, err
    }
    entryID, err := eres.LastInsertId()
    if err != nil {
        return 0, 0, err
    }

    const done = `UPDATE draft_sessions SET completed_at = UTC_TIMESTAMP() WHERE id = ?`
    if _, err := tx.ExecContext(ctx, done, sessionID); err != nil {
        return 0, 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, 0, err
    }
    committed = true
    return uint64(profileID), uint64(entryID), nil
}

// DeleteExpired removes abandoned sessions whose TTL has passed without
// a completed migration and returns how many rows were removed.
// Completed sessions are retained for audit regardless of age.  This
// is the cleanup contract used by the maintenance loop.
func (r *DraftRepo) DeleteExpired(ctx context.Context) (int64, error) {
    const q = `DELETE FROM draft_sessions
               WHERE expires_at <= UTC_TIMESTAMP() AND completed_at IS NULL`
    result, err := r.db.ExecContext(ctx, q)
    if err != nil {
        return 0, err
    }
    return result.RowsAffected()
}
