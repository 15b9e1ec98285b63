package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- accounts ----

func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, display_name, email, password_hash)
		VALUES ($1, $2, LOWER($3), $4)
	`, account.ID, account.DisplayName, account.Email, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateAccountName(ctx context.Context, accountID, displayName string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET display_name=$2 WHERE id=$1
	`, accountID, displayName)
	if err != nil {
		return fmt.Errorf("update account name: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account name: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) GetAccountByID(ctx context.Context, accountID string) (Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM accounts
		WHERE id=$1
	`, accountID).Scan(&account.ID, &account.DisplayName, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

func (s *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	var account Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, created_at
		FROM accounts
		WHERE email=LOWER($1)
	`, email).Scan(&account.ID, &account.DisplayName, &account.Email, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// ---- persons ----

const personColumns = `id, owner_account_id, linked_account_id, name, relation, COALESCE(email, ''), COALESCE(phone, ''),
	date_of_birth, COALESCE(gender, ''), COALESCE(birthday, ''), COALESCE(avatar_color, ''), COALESCE(theme, ''),
	sharing_preference, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (Person, error) {
	var item Person
	err := row.Scan(
		&item.ID,
		&item.OwnerAccountID,
		&item.LinkedAccountID,
		&item.Name,
		&item.Relation,
		&item.Email,
		&item.Phone,
		&item.DateOfBirth,
		&item.Gender,
		&item.Birthday,
		&item.AvatarColor,
		&item.Theme,
		&item.SharingPreference,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) InsertPerson(ctx context.Context, person Person) error {
	preference := person.SharingPreference
	if preference == "" {
		preference = SharingAskEveryTime
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, owner_account_id, linked_account_id, name, relation, email, phone,
			date_of_birth, gender, birthday, avatar_color, theme, sharing_preference)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), $13)
		ON CONFLICT (id) DO NOTHING
	`, person.ID, person.OwnerAccountID, person.LinkedAccountID, person.Name, person.Relation,
		person.Email, person.Phone, person.DateOfBirth, person.Gender, person.Birthday,
		person.AvatarColor, person.Theme, preference)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPerson(ctx context.Context, personID string) (Person, error) {
	return scanPerson(s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id=$1`, personID))
}

// GetSelfPerson returns the account's self profile, the Person owned by and
// linked to the same account. Nil when it has not been provisioned yet.
func (s *PostgresStore) GetSelfPerson(ctx context.Context, accountID string) (*Person, error) {
	item, err := scanPerson(s.db.QueryRowContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE owner_account_id=$1 AND linked_account_id=$1
	`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get self person: %w", err)
	}
	return &item, nil
}

func (s *PostgresStore) ListOwnedPersons(ctx context.Context, accountID string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+personColumns+`
		FROM persons
		WHERE owner_account_id=$1
		ORDER BY created_at ASC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list owned persons: %w", err)
	}
	defer rows.Close()
	return collectPersons(rows)
}

// ListSharedPersons returns persons granted to the account through an active
// PersonShare, matched by account id or email, excluding the account's own.
func (s *PostgresStore) ListSharedPersons(ctx context.Context, accountID, email string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.id, p.owner_account_id, p.linked_account_id, p.name, p.relation,
			COALESCE(p.email, ''), COALESCE(p.phone, ''), p.date_of_birth, COALESCE(p.gender, ''),
			COALESCE(p.birthday, ''), COALESCE(p.avatar_color, ''), COALESCE(p.theme, ''),
			p.sharing_preference, p.created_at, p.updated_at
		FROM persons p
		JOIN person_shares ps ON ps.person_id = p.id
		WHERE ps.revoked_at IS NULL
		  AND (ps.account_id = $1 OR LOWER(ps.account_email) = LOWER($2))
		  AND p.owner_account_id <> $1
		ORDER BY p.created_at ASC, p.id ASC
	`, accountID, email)
	if err != nil {
		return nil, fmt.Errorf("list shared persons: %w", err)
	}
	defer rows.Close()
	return collectPersons(rows)
}

func collectPersons(rows *sql.Rows) ([]Person, error) {
	items := make([]Person, 0)
	for rows.Next() {
		item, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetPersonLinkedAccount(ctx context.Context, personID, accountID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE persons SET linked_account_id=$2, updated_at=NOW() WHERE id=$1
	`, personID, accountID)
	if err != nil {
		return fmt.Errorf("set linked account: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set linked account rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeletePerson removes a person owned by the account. Records, shares, and
// links cascade through foreign keys.
func (s *PostgresStore) DeletePerson(ctx context.Context, personID, ownerAccountID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM persons WHERE id=$1 AND owner_account_id=$2
	`, personID, ownerAccountID)
	if err != nil {
		return false, fmt.Errorf("delete person: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete person rows: %w", err)
	}
	return affected > 0, nil
}

// FindContactName looks up the owner's saved name for another account, the
// way a phone shows a stored contact over a raw caller id. Matches the
// owner's persons by linked account first, then by email. Empty when unknown.
func (s *PostgresStore) FindContactName(ctx context.Context, ownerAccountID, contactAccountID, contactEmail string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
		SELECT name
		FROM persons
		WHERE owner_account_id=$1
		  AND (linked_account_id=$2 OR ($3 <> '' AND LOWER(email)=LOWER($3)))
		ORDER BY (linked_account_id=$2) DESC, created_at ASC
		LIMIT 1
	`, ownerAccountID, contactAccountID, contactEmail).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find contact name: %w", err)
	}
	return name, nil
}

// ---- collaboration requests ----

const requestColumns = `id, person_id, requester_account_id, target_account_id, COALESCE(target_email, ''),
	invite_token, snapshot, status, merged_into_person_id, created_at, resolved_at`

func scanRequest(row interface{ Scan(...any) error }) (CollaborationRequest, error) {
	var item CollaborationRequest
	var snapshotRaw []byte
	err := row.Scan(
		&item.ID,
		&item.PersonID,
		&item.RequesterAccountID,
		&item.TargetAccountID,
		&item.TargetEmail,
		&item.InviteToken,
		&snapshotRaw,
		&item.Status,
		&item.MergedIntoPersonID,
		&item.CreatedAt,
		&item.ResolvedAt,
	)
	if err != nil {
		return CollaborationRequest{}, err
	}
	if err := json.Unmarshal(snapshotRaw, &item.Snapshot); err != nil {
		return CollaborationRequest{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) InsertCollaborationRequest(ctx context.Context, request CollaborationRequest) error {
	snapshot, err := json.Marshal(request.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO collaboration_requests (id, person_id, requester_account_id, target_account_id, target_email, invite_token, snapshot, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7::jsonb, $8)
	`, request.ID, request.PersonID, request.RequesterAccountID, request.TargetAccountID,
		request.TargetEmail, request.InviteToken, string(snapshot), RequestPending)
	if err != nil {
		return fmt.Errorf("insert collaboration request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCollaborationRequest(ctx context.Context, requestID string) (CollaborationRequest, error) {
	return scanRequest(s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM collaboration_requests WHERE id=$1
	`, requestID))
}

func (s *PostgresStore) GetCollaborationRequestByToken(ctx context.Context, token string) (CollaborationRequest, error) {
	return scanRequest(s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM collaboration_requests WHERE invite_token=$1
	`, token))
}

// ListIncomingRequests returns pending requests addressed to the account by
// id or by email, newest first.
func (s *PostgresStore) ListIncomingRequests(ctx context.Context, accountID, email string) ([]CollaborationRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM collaboration_requests
		WHERE status=$1
		  AND (target_account_id=$2 OR ($3 <> '' AND LOWER(target_email)=LOWER($3)))
		ORDER BY created_at DESC
	`, RequestPending, accountID, email)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	defer rows.Close()

	items := make([]CollaborationRequest, 0)
	for rows.Next() {
		item, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collaboration request: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaboration requests: %w", err)
	}
	return items, nil
}

// ResolveCollaborationRequest moves a PENDING request to a terminal status.
// Returns false when the request was already resolved (race loss or retry).
func (s *PostgresStore) ResolveCollaborationRequest(ctx context.Context, requestID, status string, mergedIntoPersonID *string, targetAccountID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE collaboration_requests
		SET status=$2,
			merged_into_person_id=COALESCE($3, merged_into_person_id),
			target_account_id=COALESCE(NULLIF($4, ''), target_account_id),
			resolved_at=NOW()
		WHERE id=$1 AND status=$5
	`, requestID, status, mergedIntoPersonID, targetAccountID, RequestPending)
	if err != nil {
		return false, fmt.Errorf("resolve collaboration request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve collaboration request rows: %w", err)
	}
	return affected > 0, nil
}

// ---- profile links ----

const linkColumns = `id, profile_a_id, profile_b_id, account_a_id, account_b_id, is_active, collaboration_request_id, created_at, revoked_at`

// InsertProfileLink inserts an active link between two persons. The partial
// unique index on the unordered active pair makes a duplicate insert a no-op;
// the return value reports whether a row was actually written.
func (s *PostgresStore) InsertProfileLink(ctx context.Context, link ProfileLink) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO profile_links (id, profile_a_id, profile_b_id, account_a_id, account_b_id, is_active, collaboration_request_id)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6)
		ON CONFLICT ((LEAST(profile_a_id, profile_b_id)), (GREATEST(profile_a_id, profile_b_id))) WHERE is_active
		DO NOTHING
	`, link.ID, link.ProfileAID, link.ProfileBID, link.AccountAID, link.AccountBID, link.CollaborationRequestID)
	if err != nil {
		return false, fmt.Errorf("insert profile link: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert profile link rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListActiveLinksForPerson(ctx context.Context, personID string) ([]ProfileLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+linkColumns+`
		FROM profile_links
		WHERE is_active AND (profile_a_id=$1 OR profile_b_id=$1)
		ORDER BY created_at ASC
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("list active links: %w", err)
	}
	defer rows.Close()

	items := make([]ProfileLink, 0)
	for rows.Next() {
		var item ProfileLink
		if err := rows.Scan(
			&item.ID,
			&item.ProfileAID,
			&item.ProfileBID,
			&item.AccountAID,
			&item.AccountBID,
			&item.IsActive,
			&item.CollaborationRequestID,
			&item.CreatedAt,
			&item.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile link: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile links: %w", err)
	}
	return items, nil
}

// DeactivateLinksWithAccount soft-deletes every active link between the
// person and any person on the given account's side.
func (s *PostgresStore) DeactivateLinksWithAccount(ctx context.Context, personID, accountID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE profile_links
		SET is_active=FALSE, revoked_at=NOW()
		WHERE is_active
		  AND ((profile_a_id=$1 AND account_b_id=$2) OR (profile_b_id=$1 AND account_a_id=$2))
	`, personID, accountID)
	if err != nil {
		return 0, fmt.Errorf("deactivate profile links: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate profile links rows: %w", err)
	}
	return affected, nil
}

// ---- person shares ----

const shareColumns = `id, person_id, account_id, COALESCE(account_email, ''), created_at, revoked_at`

// InsertPersonShare grants an account (or a bare email) access to a person.
// Duplicate active grants collapse through the partial unique indexes.
func (s *PostgresStore) InsertPersonShare(ctx context.Context, share PersonShare) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO person_shares (id, person_id, account_id, account_email)
		VALUES ($1, $2, $3, NULLIF(LOWER($4), ''))
		ON CONFLICT DO NOTHING
	`, share.ID, share.PersonID, share.AccountID, share.AccountEmail)
	if err != nil {
		return false, fmt.Errorf("insert person share: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert person share rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListActivePersonShares(ctx context.Context, personID string) ([]PersonShare, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareColumns+`
		FROM person_shares
		WHERE person_id=$1 AND revoked_at IS NULL
		ORDER BY created_at ASC
	`, personID)
	if err != nil {
		return nil, fmt.Errorf("list person shares: %w", err)
	}
	defer rows.Close()
	return collectShares(rows)
}

// ListViewerShares returns every share (active or revoked) the viewer holds
// on the person. Revoked shares are included so item shares already keyed to
// them keep resolving; revocation is forward-only.
func (s *PostgresStore) ListViewerShares(ctx context.Context, personID, accountID, email string) ([]PersonShare, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareColumns+`
		FROM person_shares
		WHERE person_id=$1
		  AND (account_id=$2 OR ($3 <> '' AND LOWER(account_email)=LOWER($3)))
		ORDER BY created_at ASC
	`, personID, accountID, email)
	if err != nil {
		return nil, fmt.Errorf("list viewer shares: %w", err)
	}
	defer rows.Close()
	return collectShares(rows)
}

func collectShares(rows *sql.Rows) ([]PersonShare, error) {
	items := make([]PersonShare, 0)
	for rows.Next() {
		var item PersonShare
		if err := rows.Scan(&item.ID, &item.PersonID, &item.AccountID, &item.AccountEmail, &item.CreatedAt, &item.RevokedAt); err != nil {
			return nil, fmt.Errorf("scan person share: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate person shares: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) RevokePersonShare(ctx context.Context, personID, accountID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE person_shares
		SET revoked_at=NOW()
		WHERE person_id=$1 AND account_id=$2 AND revoked_at IS NULL
	`, personID, accountID)
	if err != nil {
		return false, fmt.Errorf("revoke person share: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("revoke person share rows: %w", err)
	}
	return affected > 0, nil
}

// ---- item shares ----

// ReplaceItemShares swaps the full item-share set for a record: delete all,
// insert the supplied rows. An empty slice makes the record private.
func (s *PostgresStore) ReplaceItemShares(ctx context.Context, recordType, recordID string, shares []ItemShare) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin item shares tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM item_shares WHERE record_type=$1 AND record_id=$2
	`, recordType, recordID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear item shares: %w", err)
	}
	for _, share := range shares {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO item_shares (id, record_type, record_id, person_share_id, created_by_account_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (record_type, record_id, person_share_id) DO NOTHING
		`, share.ID, recordType, recordID, share.PersonShareID, share.CreatedByAccountID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert item share: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit item shares: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListItemSharesForShares(ctx context.Context, personShareIDs []string) ([]ItemShare, error) {
	if len(personShareIDs) == 0 {
		return []ItemShare{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_type, record_id, person_share_id, created_by_account_id, created_at
		FROM item_shares
		WHERE person_share_id = ANY($1)
		ORDER BY created_at ASC
	`, personShareIDs)
	if err != nil {
		return nil, fmt.Errorf("list item shares: %w", err)
	}
	defer rows.Close()

	items := make([]ItemShare, 0)
	for rows.Next() {
		var item ItemShare
		if err := rows.Scan(&item.ID, &item.RecordType, &item.RecordID, &item.PersonShareID, &item.CreatedByAccountID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item share: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item shares: %w", err)
	}
	return items, nil
}

// ---- records ----

const taskColumns = `id, person_id, title, COALESCE(notes, ''), done, due_date, created_by_account_id,
	COALESCE(shared_from_name, ''), COALESCE(shared_from_email, ''), created_at`

func (s *PostgresStore) InsertTask(ctx context.Context, item Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, person_id, title, notes, done, due_date, created_by_account_id, shared_from_name, shared_from_email)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))
	`, item.ID, item.PersonID, item.Title, item.Notes, item.Done, item.DueDate,
		item.CreatedByAccountID, item.SharedFromName, item.SharedFromEmail)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTasksForPersons(ctx context.Context, personIDs []string) ([]Task, error) {
	return s.queryTasks(ctx, `person_id = ANY($1)`, personIDs)
}


func (s *PostgresStore) queryTasks(ctx context.Context, where string, ids []string) ([]Task, error) {
	if len(ids) == 0 {
		return []Task{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE `+where+` ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0)
	for rows.Next() {
		var item Task
		if err := rows.Scan(&item.ID, &item.PersonID, &item.Title, &item.Notes, &item.Done, &item.DueDate,
			&item.CreatedByAccountID, &item.SharedFromName, &item.SharedFromEmail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return items, nil
}

const healthColumns = `id, person_id, title, COALESCE(kind, ''), COALESCE(value, ''), COALESCE(unit, ''), recorded_at,
	created_by_account_id, COALESCE(shared_from_name, ''), COALESCE(shared_from_email, ''), created_at`

func (s *PostgresStore) InsertHealthEntry(ctx context.Context, item HealthEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO health_entries (id, person_id, title, kind, value, unit, recorded_at, created_by_account_id, shared_from_name, shared_from_email)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, NULLIF($9, ''), NULLIF($10, ''))
	`, item.ID, item.PersonID, item.Title, item.Kind, item.Value, item.Unit, item.RecordedAt,
		item.CreatedByAccountID, item.SharedFromName, item.SharedFromEmail)
	if err != nil {
		return fmt.Errorf("insert health entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListHealthEntriesForPersons(ctx context.Context, personIDs []string) ([]HealthEntry, error) {
	return s.queryHealthEntries(ctx, `person_id = ANY($1)`, personIDs)
}


func (s *PostgresStore) queryHealthEntries(ctx context.Context, where string, ids []string) ([]HealthEntry, error) {
	if len(ids) == 0 {
		return []HealthEntry{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+healthColumns+` FROM health_entries WHERE `+where+` ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("list health entries: %w", err)
	}
	defer rows.Close()

	items := make([]HealthEntry, 0)
	for rows.Next() {
		var item HealthEntry
		if err := rows.Scan(&item.ID, &item.PersonID, &item.Title, &item.Kind, &item.Value, &item.Unit, &item.RecordedAt,
			&item.CreatedByAccountID, &item.SharedFromName, &item.SharedFromEmail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan health entry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate health entries: %w", err)
	}
	return items, nil
}

const noteColumns = `id, person_id, title, COALESCE(body, ''), pinned, created_by_account_id,
	COALESCE(shared_from_name, ''), COALESCE(shared_from_email, ''), created_at`

func (s *PostgresStore) InsertNote(ctx context.Context, item Note) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (id, person_id, title, body, pinned, created_by_account_id, shared_from_name, shared_from_email)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''))
	`, item.ID, item.PersonID, item.Title, item.Body, item.Pinned,
		item.CreatedByAccountID, item.SharedFromName, item.SharedFromEmail)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotesForPersons(ctx context.Context, personIDs []string) ([]Note, error) {
	return s.queryNotes(ctx, `person_id = ANY($1)`, personIDs)
}


func (s *PostgresStore) queryNotes(ctx context.Context, where string, ids []string) ([]Note, error) {
	if len(ids) == 0 {
		return []Note{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE `+where+` ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	items := make([]Note, 0)
	for rows.Next() {
		var item Note
		if err := rows.Scan(&item.ID, &item.PersonID, &item.Title, &item.Body, &item.Pinned,
			&item.CreatedByAccountID, &item.SharedFromName, &item.SharedFromEmail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return items, nil
}

const financeColumns = `id, person_id, title, amount_cents, COALESCE(currency, ''), COALESCE(category, ''), occurred_at,
	created_by_account_id, COALESCE(shared_from_name, ''), COALESCE(shared_from_email, ''), created_at`

func (s *PostgresStore) InsertFinancialEntry(ctx context.Context, item FinancialEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_entries (id, person_id, title, amount_cents, currency, category, occurred_at, created_by_account_id, shared_from_name, shared_from_email)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, NULLIF($9, ''), NULLIF($10, ''))
	`, item.ID, item.PersonID, item.Title, item.AmountCents, item.Currency, item.Category, item.OccurredAt,
		item.CreatedByAccountID, item.SharedFromName, item.SharedFromEmail)
	if err != nil {
		return fmt.Errorf("insert financial entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListFinancialEntriesForPersons(ctx context.Context, personIDs []string) ([]FinancialEntry, error) {
	return s.queryFinancialEntries(ctx, `person_id = ANY($1)`, personIDs)
}


func (s *PostgresStore) queryFinancialEntries(ctx context.Context, where string, ids []string) ([]FinancialEntry, error) {
	if len(ids) == 0 {
		return []FinancialEntry{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+financeColumns+` FROM financial_entries WHERE `+where+` ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("list financial entries: %w", err)
	}
	defer rows.Close()

	items := make([]FinancialEntry, 0)
	for rows.Next() {
		var item FinancialEntry
		if err := rows.Scan(&item.ID, &item.PersonID, &item.Title, &item.AmountCents, &item.Currency, &item.Category, &item.OccurredAt,
			&item.CreatedByAccountID, &item.SharedFromName, &item.SharedFromEmail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan financial entry: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate financial entries: %w", err)
	}
	return items, nil
}
