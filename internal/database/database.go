package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderBy int

const (
	OrderByASC OrderBy = iota
	OrderByDESC
)

type Database struct {
	Pool *pgxpool.Pool
}

func NewDatabase() Database {
	return Database{
		Pool: nil,
	}
}

func (db *Database) Connect(ctx context.Context, connString string) error {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return fmt.Errorf("unable to parse database configuration: %w", err)
	}

	db.Pool, err = pgxpool.New(ctx, config.ConnString())
	if err != nil {
		return fmt.Errorf("unable to create database pool: %w", err)
	}

	return nil
}

func (db *Database) Close() {
	db.Pool.Close()
}

func (db *Database) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrEmailTaken          = errors.New("email already registered")
	ErrSiteNotFound        = errors.New("site not found")
	ErrFaultNotFound       = errors.New("fault not found")
	ErrPatrolCheckNotFound = errors.New("patrol check not found")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const userColumns = `id, email, password_hash, role, name, photo_url, phone, company, address, disabled, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.Name,
		&user.PhotoURL, &user.Phone, &user.Company, &user.Address, &user.Disabled,
		&user.CreatedAt, &user.UpdatedAt)
	return user, err
}

type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         model.Role
	Name         string
	PhotoURL     util.Optional[string]
	Phone        util.Optional[string]
	Company      util.Optional[string]
	Address      util.Optional[string]
	SiteIDs      []uuid.UUID
}

// CreateUser inserts the profile and, for customers, the site membership
// rows in a single transaction so the account appears atomically.
func (db *Database) CreateUser(ctx context.Context, params CreateUserParams) (model.User, error) {
	user := model.User{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		Name:         params.Name,
		PhotoURL:     params.PhotoURL,
		Phone:        params.Phone,
		Company:      params.Company,
		Address:      params.Address,
		SiteIDs:      params.SiteIDs,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return user, fmt.Errorf("database: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO tbl_user (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Email, user.PasswordHash, user.Role, user.Name, user.PhotoURL,
		user.Phone, user.Company, user.Address, user.Disabled, user.CreatedAt, user.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return user, ErrEmailTaken
		}
		return user, fmt.Errorf("database: failed to insert user (email=%s): %w", user.Email, err)
	}

	for _, siteID := range params.SiteIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO tbl_user_site (user_id, site_id) VALUES ($1, $2)`, user.ID, siteID); err != nil {
			return user, fmt.Errorf("database: failed to insert user site membership (user_id=%s, site_id=%s): %w", user.ID, siteID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return user, fmt.Errorf("database: failed to commit user creation: %w", err)
	}
	return user, nil
}

func (db *Database) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return db.GetUser(ctx, GetUserParams{ID: util.Some(id)})
}

func (db *Database) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return db.GetUser(ctx, GetUserParams{Email: util.Some(email)})
}

type GetUserParams struct {
	ID    util.Optional[uuid.UUID]
	Email util.Optional[string]
}

func (db *Database) GetUser(ctx context.Context, params GetUserParams) (model.User, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + userColumns + ` FROM tbl_user WHERE 1=1`)
	var args []any
	argNum := 1

	if params.ID.IsSet {
		query.WriteString(fmt.Sprintf(" AND id = $%d", argNum))
		args = append(args, params.ID.Val)
		argNum++
	}
	if params.Email.IsSet {
		query.WriteString(fmt.Sprintf(" AND email = $%d", argNum))
		args = append(args, params.Email.Val)
		argNum++
	}

	user, err := scanUser(db.Pool.QueryRow(ctx, query.String(), args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user, ErrUserNotFound
		}
		return user, fmt.Errorf("database: failed to scan user: %w", err)
	}

	user.SiteIDs, err = db.listUserSites(ctx, user.ID)
	if err != nil {
		return user, err
	}
	return user, nil
}

func (db *Database) listUserSites(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := db.Pool.Query(ctx, `SELECT site_id FROM tbl_user_site WHERE user_id = $1 ORDER BY site_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list user sites: %w", err)
	}
	defer rows.Close()

	var siteIDs []uuid.UUID
	for rows.Next() {
		var siteID uuid.UUID
		if err := rows.Scan(&siteID); err != nil {
			return nil, fmt.Errorf("database: failed to scan user site: %w", err)
		}
		siteIDs = append(siteIDs, siteID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate user sites: %w", err)
	}
	return siteIDs, nil
}

type ListUsersParams struct {
	Role   util.Optional[model.Role]
	Limit  int
	Offset int
}

func (db *Database) ListUsers(ctx context.Context, params ListUsersParams) ([]model.User, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + userColumns + ` FROM tbl_user WHERE 1=1`)
	var args []any
	argNum := 1

	if params.Role.IsSet {
		query.WriteString(fmt.Sprintf(" AND role = $%d", argNum))
		args = append(args, params.Role.Val)
		argNum++
	}
	query.WriteString(" ORDER BY created_at DESC")
	if params.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1))
		args = append(args, params.Limit, params.Offset)
	}

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate users: %w", err)
	}

	for i := range users {
		if users[i].Role != model.RoleCustomer {
			continue
		}
		users[i].SiteIDs, err = db.listUserSites(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}

type UpdateUserParams struct {
	Name         util.Optional[string]
	PasswordHash util.Optional[string]
	PhotoURL     util.Optional[string]
	Phone        util.Optional[string]
	Company      util.Optional[string]
	Address      util.Optional[string]
	Disabled     util.Optional[bool]
	SiteIDs      util.Optional[[]uuid.UUID]
}

func (db *Database) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("database: failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var query strings.Builder
	query.WriteString(`UPDATE tbl_user SET `)
	var args []any
	argNum := 1

	appendSet := func(column string, value any) {
		query.WriteString(fmt.Sprintf("%s = $%d, ", column, argNum))
		args = append(args, value)
		argNum++
	}

	if params.Name.IsSet {
		appendSet("name", params.Name.Val)
	}
	if params.PasswordHash.IsSet {
		appendSet("password_hash", params.PasswordHash.Val)
	}
	if params.PhotoURL.IsSet {
		appendSet("photo_url", params.PhotoURL.Val)
	}
	if params.Phone.IsSet {
		appendSet("phone", params.Phone.Val)
	}
	if params.Company.IsSet {
		appendSet("company", params.Company.Val)
	}
	if params.Address.IsSet {
		appendSet("address", params.Address.Val)
	}
	if params.Disabled.IsSet {
		appendSet("disabled", params.Disabled.Val)
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	tag, err := tx.Exec(ctx, query.String(), args...)
	if err != nil {
		return fmt.Errorf("database: failed to update user (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	if params.SiteIDs.IsSet {
		if _, err := tx.Exec(ctx, `DELETE FROM tbl_user_site WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("database: failed to clear user sites (id=%s): %w", id, err)
		}
		for _, siteID := range params.SiteIDs.Val {
			if _, err := tx.Exec(ctx, `INSERT INTO tbl_user_site (user_id, site_id) VALUES ($1, $2)`, id, siteID); err != nil {
				return fmt.Errorf("database: failed to insert user site membership (user_id=%s, site_id=%s): %w", id, siteID, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("database: failed to commit user update: %w", err)
	}
	return nil
}

func (db *Database) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_user WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete user (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

type CreateSiteParams struct {
	Name string
}

func (db *Database) CreateSite(ctx context.Context, params CreateSiteParams) (model.Site, error) {
	site := model.Site{
		ID:        uuid.New(),
		Name:      params.Name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_site (id, name, created_at) VALUES ($1, $2, $3)`,
		site.ID, site.Name, site.CreatedAt); err != nil {
		return site, fmt.Errorf("database: failed to insert site (name=%s): %w", site.Name, err)
	}
	return site, nil
}

func (db *Database) GetSiteByID(ctx context.Context, id uuid.UUID) (model.Site, error) {
	var site model.Site
	err := db.Pool.QueryRow(ctx, `SELECT id, name, created_at FROM tbl_site WHERE id = $1`, id).
		Scan(&site.ID, &site.Name, &site.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return site, ErrSiteNotFound
		}
		return site, fmt.Errorf("database: failed to scan site: %w", err)
	}
	return site, nil
}

func (db *Database) ListSites(ctx context.Context) ([]model.Site, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, name, created_at FROM tbl_site ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate sites: %w", err)
	}
	return sites, nil
}

const faultColumns = `id, title, description, location, site_id, status, priority, created_by, assigned_to, photo_urls, comments, resolution, created_at, updated_at`

func scanFault(row pgx.Row) (model.Fault, error) {
	var fault model.Fault
	var commentsRaw []byte
	var resolutionRaw []byte

	err := row.Scan(&fault.ID, &fault.Title, &fault.Description, &fault.Location,
		&fault.SiteID, &fault.Status, &fault.Priority, &fault.CreatedBy, &fault.AssignedTo,
		&fault.PhotoURLs, &commentsRaw, &resolutionRaw, &fault.CreatedAt, &fault.UpdatedAt)
	if err != nil {
		return fault, err
	}

	if len(commentsRaw) > 0 {
		if err := json.Unmarshal(commentsRaw, &fault.Comments); err != nil {
			return fault, fmt.Errorf("database: failed to decode fault comments: %w", err)
		}
	}
	if len(resolutionRaw) > 0 {
		var resolution model.Resolution
		if err := json.Unmarshal(resolutionRaw, &resolution); err != nil {
			return fault, fmt.Errorf("database: failed to decode fault resolution: %w", err)
		}
		fault.Resolution = util.Some(resolution)
	}
	return fault, nil
}

type CreateFaultParams struct {
	Title       string
	Description string
	Location    string
	SiteID      uuid.UUID
	Status      model.FaultStatus
	Priority    model.Priority
	CreatedBy   uuid.UUID
	AssignedTo  util.Optional[uuid.UUID]
	PhotoURLs   []string
	Resolution  util.Optional[model.Resolution]
}

func (db *Database) CreateFault(ctx context.Context, params CreateFaultParams) (model.Fault, error) {
	fault := model.Fault{
		ID:          uuid.New(),
		Title:       params.Title,
		Description: params.Description,
		Location:    params.Location,
		SiteID:      params.SiteID,
		Status:      params.Status,
		Priority:    params.Priority,
		CreatedBy:   params.CreatedBy,
		AssignedTo:  params.AssignedTo,
		PhotoURLs:   params.PhotoURLs,
		Comments:    []model.Comment{},
		Resolution:  params.Resolution,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	resolutionRaw, err := marshalResolution(fault.Resolution)
	if err != nil {
		return fault, err
	}
	if fault.PhotoURLs == nil {
		fault.PhotoURLs = []string{}
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_fault (`+faultColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '[]'::jsonb, $11, $12, $13)`,
		fault.ID, fault.Title, fault.Description, fault.Location, fault.SiteID, fault.Status,
		fault.Priority, fault.CreatedBy, fault.AssignedTo, fault.PhotoURLs, resolutionRaw,
		fault.CreatedAt, fault.UpdatedAt); err != nil {
		return fault, fmt.Errorf("database: failed to insert fault (title=%s): %w", fault.Title, err)
	}
	return fault, nil
}

func marshalResolution(resolution util.Optional[model.Resolution]) (any, error) {
	if !resolution.IsSet {
		return nil, nil
	}
	raw, err := json.Marshal(resolution.Val)
	if err != nil {
		return nil, fmt.Errorf("database: failed to encode resolution: %w", err)
	}
	return raw, nil
}

func (db *Database) GetFaultByID(ctx context.Context, id uuid.UUID) (model.Fault, error) {
	fault, err := scanFault(db.Pool.QueryRow(ctx, `SELECT `+faultColumns+` FROM tbl_fault WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fault, ErrFaultNotFound
		}
		return fault, fmt.Errorf("database: failed to scan fault: %w", err)
	}
	return fault, nil
}

type ListFaultsParams struct {
	SiteIDs       util.Optional[[]uuid.UUID]
	Status        util.Optional[model.FaultStatus]
	AssignedTo    util.Optional[uuid.UUID]
	CreatedAfter  util.Optional[time.Time]
	CreatedBefore util.Optional[time.Time]
}

// ListFaults returns faults newest first. A set but empty SiteIDs filter
// matches nothing; that is how customer visibility fails closed.
func (db *Database) ListFaults(ctx context.Context, params ListFaultsParams) ([]model.Fault, error) {
	if params.SiteIDs.IsSet && len(params.SiteIDs.Val) == 0 {
		return []model.Fault{}, nil
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + faultColumns + ` FROM tbl_fault WHERE 1=1`)
	var args []any
	argNum := 1

	if params.SiteIDs.IsSet {
		query.WriteString(fmt.Sprintf(" AND site_id = ANY($%d)", argNum))
		args = append(args, params.SiteIDs.Val)
		argNum++
	}
	if params.Status.IsSet {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argNum))
		args = append(args, params.Status.Val)
		argNum++
	}
	if params.AssignedTo.IsSet {
		query.WriteString(fmt.Sprintf(" AND assigned_to = $%d", argNum))
		args = append(args, params.AssignedTo.Val)
		argNum++
	}
	if params.CreatedAfter.IsSet {
		query.WriteString(fmt.Sprintf(" AND created_at >= $%d", argNum))
		args = append(args, params.CreatedAfter.Val)
		argNum++
	}
	if params.CreatedBefore.IsSet {
		query.WriteString(fmt.Sprintf(" AND created_at <= $%d", argNum))
		args = append(args, params.CreatedBefore.Val)
		argNum++
	}
	query.WriteString(" ORDER BY created_at DESC")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list faults: %w", err)
	}
	defer rows.Close()

	var faults []model.Fault
	for rows.Next() {
		fault, err := scanFault(rows)
		if err != nil {
			return nil, fmt.Errorf("database: failed to scan fault: %w", err)
		}
		faults = append(faults, fault)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate faults: %w", err)
	}
	return faults, nil
}

type UpdateFaultParams struct {
	Title       util.Optional[string]
	Description util.Optional[string]
	Location    util.Optional[string]
	SiteID      util.Optional[uuid.UUID]
	Status      util.Optional[model.FaultStatus]
	Priority    util.Optional[model.Priority]
	AssignedTo  util.Optional[util.Optional[uuid.UUID]]
	PhotoURLs   util.Optional[[]string]
	Resolution  util.Optional[model.Resolution]
	// ClearResolution drops the resolution; used when a fault moves back
	// out of the resolved status.
	ClearResolution bool
}

// UpdateFault applies all requested field changes in one statement, so a
// resolve (status + resolution together) is a single atomic write.
func (db *Database) UpdateFault(ctx context.Context, id uuid.UUID, params UpdateFaultParams) error {
	var query strings.Builder
	query.WriteString(`UPDATE tbl_fault SET `)
	var args []any
	argNum := 1

	appendSet := func(column string, value any) {
		query.WriteString(fmt.Sprintf("%s = $%d, ", column, argNum))
		args = append(args, value)
		argNum++
	}

	if params.Title.IsSet {
		appendSet("title", params.Title.Val)
	}
	if params.Description.IsSet {
		appendSet("description", params.Description.Val)
	}
	if params.Location.IsSet {
		appendSet("location", params.Location.Val)
	}
	if params.SiteID.IsSet {
		appendSet("site_id", params.SiteID.Val)
	}
	if params.Status.IsSet {
		appendSet("status", params.Status.Val)
	}
	if params.Priority.IsSet {
		appendSet("priority", params.Priority.Val)
	}
	if params.AssignedTo.IsSet {
		appendSet("assigned_to", params.AssignedTo.Val)
	}
	if params.PhotoURLs.IsSet {
		appendSet("photo_urls", params.PhotoURLs.Val)
	}
	if params.ClearResolution {
		query.WriteString("resolution = NULL, ")
	} else if params.Resolution.IsSet {
		raw, err := marshalResolution(util.Some(params.Resolution.Val))
		if err != nil {
			return err
		}
		appendSet("resolution", raw)
	}

	query.WriteString(fmt.Sprintf("updated_at = $%d WHERE id = $%d", argNum, argNum+1))
	args = append(args, time.Now().UTC(), id)

	tag, err := db.Pool.Exec(ctx, query.String(), args...)
	if err != nil {
		return fmt.Errorf("database: failed to update fault (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFaultNotFound
	}
	return nil
}

// AppendComment relies on jsonb concatenation so concurrent commenters
// cannot lose each other's appends.
func (db *Database) AppendComment(ctx context.Context, faultID uuid.UUID, comment model.Comment) error {
	raw, err := json.Marshal([]model.Comment{comment})
	if err != nil {
		return fmt.Errorf("database: failed to encode comment: %w", err)
	}

	tag, err := db.Pool.Exec(ctx,
		`UPDATE tbl_fault SET comments = comments || $2::jsonb, updated_at = $3 WHERE id = $1`,
		faultID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("database: failed to append comment (fault_id=%s): %w", faultID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFaultNotFound
	}
	return nil
}

func (db *Database) DeleteFault(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_fault WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("database: failed to delete fault (id=%s): %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrFaultNotFound
	}
	return nil
}

const patrolCheckColumns = `id, guard_id, site_id, shift, slot, status, description, photo_urls, location, checked_at, created_at`

type CreatePatrolCheckParams struct {
	GuardID     uuid.UUID
	SiteID      uuid.UUID
	Shift       model.PatrolShift
	Slot        string
	Status      model.PatrolStatus
	Description string
	PhotoURLs   []string
	Location    util.Optional[model.GeoPoint]
	CheckedAt   time.Time
}

func (db *Database) CreatePatrolCheck(ctx context.Context, params CreatePatrolCheckParams) (model.PatrolCheck, error) {
	check := model.PatrolCheck{
		ID:          uuid.New(),
		GuardID:     params.GuardID,
		SiteID:      params.SiteID,
		Shift:       params.Shift,
		Slot:        params.Slot,
		Status:      params.Status,
		Description: params.Description,
		PhotoURLs:   params.PhotoURLs,
		Location:    params.Location,
		CheckedAt:   params.CheckedAt,
		CreatedAt:   time.Now().UTC(),
	}
	if check.PhotoURLs == nil {
		check.PhotoURLs = []string{}
	}

	var locationRaw any
	if check.Location.IsSet {
		raw, err := json.Marshal(check.Location.Val)
		if err != nil {
			return check, fmt.Errorf("database: failed to encode patrol location: %w", err)
		}
		locationRaw = raw
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_patrol_check (`+patrolCheckColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		check.ID, check.GuardID, check.SiteID, check.Shift, check.Slot, check.Status,
		check.Description, check.PhotoURLs, locationRaw, check.CheckedAt, check.CreatedAt); err != nil {
		return check, fmt.Errorf("database: failed to insert patrol check (guard_id=%s): %w", check.GuardID, err)
	}
	return check, nil
}

type ListPatrolChecksParams struct {
	GuardID       util.Optional[uuid.UUID]
	SiteID        util.Optional[uuid.UUID]
	CheckedAfter  util.Optional[time.Time]
	CheckedBefore util.Optional[time.Time]
}

func (db *Database) ListPatrolChecks(ctx context.Context, params ListPatrolChecksParams) ([]model.PatrolCheck, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + patrolCheckColumns + ` FROM tbl_patrol_check WHERE 1=1`)
	var args []any
	argNum := 1

	if params.GuardID.IsSet {
		query.WriteString(fmt.Sprintf(" AND guard_id = $%d", argNum))
		args = append(args, params.GuardID.Val)
		argNum++
	}
	if params.SiteID.IsSet {
		query.WriteString(fmt.Sprintf(" AND site_id = $%d", argNum))
		args = append(args, params.SiteID.Val)
		argNum++
	}
	if params.CheckedAfter.IsSet {
		query.WriteString(fmt.Sprintf(" AND checked_at >= $%d", argNum))
		args = append(args, params.CheckedAfter.Val)
		argNum++
	}
	if params.CheckedBefore.IsSet {
		query.WriteString(fmt.Sprintf(" AND checked_at <= $%d", argNum))
		args = append(args, params.CheckedBefore.Val)
		argNum++
	}
	query.WriteString(" ORDER BY checked_at DESC")

	rows, err := db.Pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("database: failed to list patrol checks: %w", err)
	}
	defer rows.Close()

	var checks []model.PatrolCheck
	for rows.Next() {
		var check model.PatrolCheck
		var locationRaw []byte
		if err := rows.Scan(&check.ID, &check.GuardID, &check.SiteID, &check.Shift, &check.Slot,
			&check.Status, &check.Description, &check.PhotoURLs, &locationRaw,
			&check.CheckedAt, &check.CreatedAt); err != nil {
			return nil, fmt.Errorf("database: failed to scan patrol check: %w", err)
		}
		if len(locationRaw) > 0 {
			var location model.GeoPoint
			if err := json.Unmarshal(locationRaw, &location); err != nil {
				return nil, fmt.Errorf("database: failed to decode patrol location: %w", err)
			}
			check.Location = util.Some(location)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("database: failed to iterate patrol checks: %w", err)
	}
	return checks, nil
}

type CreateAuditLogParams struct {
	ActorID    util.Optional[uuid.UUID]
	EntityType string
	EntityID   uuid.UUID
	Action     string
	OldValues  map[string]any
	NewValues  map[string]any
	IPAddress  string
}

func (db *Database) CreateAuditLog(ctx context.Context, params CreateAuditLogParams) error {
	oldRaw, err := json.Marshal(params.OldValues)
	if err != nil {
		return fmt.Errorf("database: failed to encode audit old values: %w", err)
	}
	newRaw, err := json.Marshal(params.NewValues)
	if err != nil {
		return fmt.Errorf("database: failed to encode audit new values: %w", err)
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_audit_log (id, actor_id, entity_type, entity_id, action, old_values, new_values, ip_address, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), params.ActorID, params.EntityType, params.EntityID, params.Action,
		oldRaw, newRaw, params.IPAddress, time.Now().UTC()); err != nil {
		return fmt.Errorf("database: failed to insert audit log: %w", err)
	}
	return nil
}
