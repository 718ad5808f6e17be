package handler

import (
    "context"        // context with timeout for DB calls
    "crypto/sha1"    // digest for mirror namespacing
    "errors"         // errors.Is comparisons against sentinels
    "fmt"            // key formatting
    "net/http"       // HTTP status codes
    "strings"        // input normalization
    "time"           // timeouts and event timestamps

    "github.com/google/uuid"      // event IDs
    "github.com/labstack/echo/v4" // Echo web framework

    "github.com/s-411/tracker-onboarding/internal/config"
    "github.com/s-411/tracker-onboarding/internal/flow"
    "github.com/s-411/tracker-onboarding/internal/middleware"
    "github.com/s-411/tracker-onboarding/internal/mirror"
    "github.com/s-411/tracker-onboarding/internal/model"
    "github.com/s-411/tracker-onboarding/internal/queue"
    "github.com/s-411/tracker-onboarding/internal/repository"
    queue_publisher "github.com/s-411/tracker-onboarding/internal/service"
    "github.com/s-411/tracker-onboarding/internal/utils"
    "github.com/s-411/tracker-onboarding/internal/validation"
)

// draftTokenHeader carries the draft bearer token on every onboarding
// request after session creation.  The token never appears in URLs so
// it stays out of access logs.
const draftTokenHeader = "X-Draft-Token"

// deviceHeader identifies the visitor's device for mirror namespacing.
// The client generates it once and sends it on every request.
const deviceHeader = "X-Device-ID"

// OnboardingHandler exposes the progressive onboarding flow over HTTP.
// It bundles the flow controller, the migration coordinator, account
// repositories for the step 3 hand-off, and the store backing the
// per-device mirrors.
type OnboardingHandler struct {
    Cfg       config.Config
    MirrorCfg config.MirrorConfig
    Ctrl      *flow.Controller
    Coord     *flow.Coordinator
    Users     *repository.UserRepo
    Tokens    *repository.TokenRepo
    Store     mirror.Store // may be nil; mirrors then degrade to no-ops
}

// NewOnboardingHandler constructs the handler.  Store may be nil when
// no Redis is configured; everything else must be non-nil.
func NewOnboardingHandler(cfg config.Config, mcfg config.MirrorConfig, ctrl *flow.Controller, coord *flow.Coordinator, users *repository.UserRepo, tokens *repository.TokenRepo, store mirror.Store) *OnboardingHandler {
    if ctrl == nil || coord == nil || users == nil || tokens == nil {
        panic("nil dependency passed to NewOnboardingHandler")
    }
    return &OnboardingHandler{
        Cfg:       cfg,
        MirrorCfg: mcfg,
        Ctrl:      ctrl,
        Coord:     coord,
        Users:     users,
        Tokens:    tokens,
        Store:     store,
    }
}

// mirrorFor builds the per-device mirror for this request.  Without a
// device header (or without a configured store) the mirror wraps a nil
// store and every operation becomes a no-op, which the flow tolerates.
func (h *OnboardingHandler) mirrorFor(c echo.Context) *mirror.Mirror {
    if h.Store == nil || !h.MirrorCfg.Enabled {
        return mirror.New(nil, h.MirrorCfg.Prefix)
    }
    dev := strings.TrimSpace(c.Request().Header.Get(deviceHeader))
    if dev == "" {
        return mirror.New(nil, h.MirrorCfg.Prefix)
    }
    // Digest the device ID so arbitrary client input cannot shape keys.
    return mirror.New(h.Store, fmt.Sprintf("%s:%x", h.MirrorCfg.Prefix, sha1.Sum([]byte(dev))))
}

func draftToken(c echo.Context) string {
    return strings.TrimSpace(c.Request().Header.Get(draftTokenHeader))
}

// ----- DTOs -----

type accountReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type planReq struct {
    Plan string `json:"plan"` // free | weekly | annual
}

type sessionResp struct {
    Token     string    `json:"token"`
    Step      int       `json:"step"`
    ExpiresAt time.Time `json:"expires_at"`
}

// CreateSession handles POST /v1/onboarding/session.  It allocates a
// fresh draft session at step 1 and returns its bearer token.  This is
// the only response that ever carries the token.
func (h *OnboardingHandler) CreateSession(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    d, err := h.Ctrl.StartSession(ctx, h.mirrorFor(c))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
    }
    return c.JSON(http.StatusCreated, sessionResp{Token: d.Token, Step: d.Step, ExpiresAt: d.ExpiresAt})
}

// GetSession handles GET /v1/onboarding/session.  It returns the
// server draft after performing the remote-wins sync into the mirror.
// The three gone states are distinguishable so the client can react
// accordingly; all of them mean "restart from the profile step".
func (h *OnboardingHandler) GetSession(c echo.Context) error {
    token := draftToken(c)
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing draft token"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    d, err := h.Ctrl.SyncFromServer(ctx, h.mirrorFor(c), token)
    if err != nil {
        return h.draftFetchError(c, err)
    }
    return c.JSON(http.StatusOK, d)
}

// Route handles GET /v1/onboarding/route.  It runs behind OptionalJWT:
// a valid bearer marks the visitor as signed in and routes straight to
// the application; anything else is a guest.
func (h *OnboardingHandler) Route(c echo.Context) error {
    _, authenticated := middleware.AccountID(c)
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    r := h.Ctrl.Route(ctx, h.mirrorFor(c), authenticated)
    return c.JSON(http.StatusOK, echo.Map{"route": r.String()})
}

// SaveProfile handles PUT /v1/onboarding/profile: step 1 submission.
func (h *OnboardingHandler) SaveProfile(c echo.Context) error {
    token := draftToken(c)
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing draft token"})
    }
    var p model.ProfileDraft
    if err := c.Bind(&p); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Ctrl.SubmitProfile(ctx, h.mirrorFor(c), token, p)
    if err != nil {
        return h.draftWriteError(c, err)
    }
    if !res.IsValid() {
        return c.JSON(http.StatusUnprocessableEntity, res)
    }
    return c.JSON(http.StatusOK, echo.Map{"step": model.StepEntry})
}

// SaveEntry handles PUT /v1/onboarding/entry: step 2 submission.
func (h *OnboardingHandler) SaveEntry(c echo.Context) error {
    token := draftToken(c)
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing draft token"})
    }
    var e model.EntryDraft
    if err := c.Bind(&e); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    res, err := h.Ctrl.SubmitEntry(ctx, h.mirrorFor(c), token, e)
    if err != nil {
        return h.draftWriteError(c, err)
    }
    if !res.IsValid() {
        return c.JSON(http.StatusUnprocessableEntity, res)
    }
    return c.JSON(http.StatusOK, echo.Map{"step": model.StepAccount})
}

// UpdateStep handles PUT /v1/onboarding/step: an explicit step advance.
// The store keeps the counter monotonic, so sending a lower value is a
// no-op rather than an error.
func (h *OnboardingHandler) UpdateStep(c echo.Context) error {
    token := draftToken(c)
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing draft token"})
    }
    var body struct {
        Step int `json:"step"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if body.Step < model.StepProfile || body.Step > model.StepPlan {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "step out of range"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Ctrl.AdvanceStep(ctx, h.mirrorFor(c), token, body.Step); err != nil {
        return h.draftWriteError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"step": body.Step})
}

// CreateAccount handles POST /v1/onboarding/account: the step 3 submit.
// It validates the credentials, records the contact email on the draft,
// creates the permanent account, and immediately migrates the draft.
// The response always reports the migration outcome separately from the
// account, because "account created but data not moved" is the one
// state the client must surface as a support case instead of a retry
// prompt.
func (h *OnboardingHandler) CreateAccount(c echo.Context) error {
    token := draftToken(c)
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing draft token"})
    }
    var req accountReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))

    var res validation.Result
    res.Errors = append(res.Errors, validation.ValidateEmail(req.Email).Errors...)
    res.Errors = append(res.Errors, validation.ValidatePassword(req.Password).Errors...)
    if !res.IsValid() {
        return c.JSON(http.StatusUnprocessableEntity, res)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()
    m := h.mirrorFor(c)

    // Record the contact email before the account exists, so a draft
    // stranded by a failed migration still carries a way to reach the
    // visitor.
    if err := h.Ctrl.RecordContactEmail(ctx, m, token, req.Email); err != nil {
        return h.draftWriteError(c, err)
    }

    uid, err := h.Users.Create(ctx, req.Email, req.Password, h.Cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create account failed"})
    }

    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }

    // Best effort: the migration below reads the draft regardless of
    // whether the counter moved, and a dead draft surfaces there.
    _ = h.Ctrl.AdvanceStep(ctx, m, token, model.StepPlan)

    outcome, merr := h.Coord.Migrate(ctx, m, token, uid)
    body := echo.Map{
        "user":      echo.Map{"id": uid, "email": req.Email},
        "access":    echo.Map{"token": access.Token, "expires": access.Exp},
        "refresh":   echo.Map{"token": refresh.Raw, "expires": refresh.Exp},
        "migration": echo.Map{"status": outcome.Status.String()},
    }
    if outcome.Status != flow.MigrateSuccess {
        // The account exists but the draft did not move: an automatic
        // retry is not safe to promise, so tell the visitor to contact
        // support. The token is still valid for a server-side retry.
        c.Logger().Errorf("onboarding: account %d created but migration failed: %v", uid, merr)
        body["migration"] = echo.Map{
            "status":  outcome.Status.String(),
            "support": true,
            "message": "your account was created but your onboarding data could not be moved; please contact support",
        }
        return c.JSON(http.StatusInternalServerError, body)
    }

    body["migration"] = echo.Map{
        "status":     outcome.Status.String(),
        "profile_id": outcome.ProfileID,
        "entry_id":   outcome.EntryID,
    }
    h.publishCompleted(uid, outcome, req.Email)
    return c.JSON(http.StatusCreated, body)
}

// Migrate handles POST /v1/onboarding/migrate (JWT protected): the
// idempotent server-side retry path for a migration that failed after
// account creation. A repeat call after a success reports
// already_completed and creates nothing.
func (h *OnboardingHandler) Migrate(c echo.Context) error {
    uid, ok := middleware.AccountID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    token := draftToken(c)
    if token == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing draft token"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    outcome, err := h.Coord.Migrate(ctx, h.mirrorFor(c), token, uid)
    switch outcome.Status {
    case flow.MigrateSuccess:
        h.publishCompleted(uid, outcome, "")
        return c.JSON(http.StatusOK, echo.Map{
            "status":     outcome.Status.String(),
            "profile_id": outcome.ProfileID,
            "entry_id":   outcome.EntryID,
        })
    case flow.MigrateAlreadyCompleted:
        return c.JSON(http.StatusConflict, echo.Map{"status": outcome.Status.String()})
    case flow.MigrateNotFound:
        return c.JSON(http.StatusNotFound, echo.Map{"status": outcome.Status.String()})
    case flow.MigrateExpired:
        return c.JSON(http.StatusGone, echo.Map{"status": outcome.Status.String()})
    }
    c.Logger().Errorf("onboarding: migration retry for account %d failed: %v", uid, err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"status": outcome.Status.String()})
}

// SelectPlan handles POST /v1/onboarding/plan (JWT protected): step 4.
// It records the chosen tier; checkout happens with the external
// payment provider and is out of scope here.
func (h *OnboardingHandler) SelectPlan(c echo.Context) error {
    uid, ok := middleware.AccountID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req planReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    plan := strings.ToLower(strings.TrimSpace(req.Plan))
    switch plan {
    case "free", "weekly", "annual":
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown plan"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Users.SetPlan(ctx, uid, plan); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save plan failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"plan": plan})
}

// publishCompleted emits the completion event. Failures are logged by
// the publisher and ignored: the migration already committed.
func (h *OnboardingHandler) publishCompleted(uid uint64, outcome flow.MigrateOutcome, email string) {
    ev := queue.OnboardingCompletedEvent{
        EventID:     uuid.NewString(),
        UserID:      uid,
        ProfileID:   outcome.ProfileID,
        EntryID:     outcome.EntryID,
        Email:       email,
        CompletedAt: time.Now().UTC().Format(time.RFC3339),
    }
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _ = queue_publisher.PublishOnboardingCompleted(ctx, ev)
}

// draftFetchError maps a read-path sentinel to its HTTP shape.
func (h *OnboardingHandler) draftFetchError(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrDraftNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "route": "profile"})
    case errors.Is(err, repository.ErrDraftExpired):
        return c.JSON(http.StatusGone, echo.Map{"error": "expired", "route": "profile"})
    case errors.Is(err, repository.ErrDraftCompleted):
        return c.JSON(http.StatusGone, echo.Map{"error": "already_completed", "route": "profile"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}

// draftWriteError maps controller errors on the write path. ErrRestart
// means the draft is gone and the mirror was cleared; the client shows
// a fresh step 1 form, never a technical message.
func (h *OnboardingHandler) draftWriteError(c echo.Context, err error) error {
    if errors.Is(err, flow.ErrRestart) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "restart", "route": "profile"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
