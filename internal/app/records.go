package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hearth/api/internal/search"
	"hearth/api/internal/store"
	"hearth/api/internal/util"
)

// RecordShareInput carries the creator's sharing choice for a new record.
// Nil ShareWith means "no explicit choice": the person's sharing preference
// decides. An empty non-nil slice means explicitly private.
type RecordShareInput struct {
	ShareWith []string
}

// loadContributablePerson checks that the session may add records to the
// person: the owner always may, a collaborator needs an active (not revoked)
// share.
func (s *Service) loadContributablePerson(ctx context.Context, session Session, personID string) (store.Person, error) {
	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Person{}, ErrPersonNotFound
		}
		return store.Person{}, err
	}
	if person.OwnerAccountID == session.AccountID {
		return person, nil
	}
	shares, err := s.store.ListViewerShares(ctx, person.ID, session.AccountID, session.Email)
	if err != nil {
		return store.Person{}, err
	}
	for _, share := range shares {
		if share.RevokedAt == nil {
			return person, nil
		}
	}
	return store.Person{}, ErrPersonNotFound
}

// applyRecordShares materializes the sharing choice for a freshly created
// record. Owner with no explicit choice on an ALWAYS_SHARE person shares to
// every active collaborator; otherwise no explicit choice means private.
func (s *Service) applyRecordShares(ctx context.Context, session Session, person store.Person, recordType, recordID string, input RecordShareInput) error {
	shareIDs := input.ShareWith
	if shareIDs == nil {
		if person.OwnerAccountID != session.AccountID || person.SharingPreference != store.SharingAlwaysShare {
			return nil
		}
		active, err := s.store.ListActivePersonShares(ctx, person.ID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return nil
		}
		shareIDs = make([]string, 0, len(active))
		for _, share := range active {
			shareIDs = append(shareIDs, share.ID)
		}
	}
	if len(shareIDs) == 0 {
		return nil
	}
	return s.SetItemShares(ctx, session, recordType, recordID, shareIDs)
}

func (s *Service) recordOrigin(session Session, person store.Person) (name, email string) {
	if person.OwnerAccountID == session.AccountID {
		return "", ""
	}
	return session.Name, session.Email
}

func (s *Service) indexRecord(doc search.Document) {
	if s.search != nil {
		s.search.IndexAsync(doc)
	}
}

type recordRef struct {
	recordType string
	id         string
}

// listRecordRefs collects the type and id of every record on a person, used
// to clean the search index up after the person is deleted. Best effort: a
// listing error just means some documents linger until the next reindex.
func (s *Service) listRecordRefs(ctx context.Context, personID string) []recordRef {
	if s.search == nil {
		return nil
	}
	ids := []string{personID}
	var refs []recordRef
	if tasks, err := s.store.ListTasksForPersons(ctx, ids); err == nil {
		for _, task := range tasks {
			refs = append(refs, recordRef{store.RecordTask, task.ID})
		}
	}
	if entries, err := s.store.ListHealthEntriesForPersons(ctx, ids); err == nil {
		for _, entry := range entries {
			refs = append(refs, recordRef{store.RecordHealth, entry.ID})
		}
	}
	if notes, err := s.store.ListNotesForPersons(ctx, ids); err == nil {
		for _, note := range notes {
			refs = append(refs, recordRef{store.RecordNote, note.ID})
		}
	}
	if entries, err := s.store.ListFinancialEntriesForPersons(ctx, ids); err == nil {
		for _, entry := range entries {
			refs = append(refs, recordRef{store.RecordFinance, entry.ID})
		}
	}
	return refs
}

func (s *Service) deindexRecords(refs []recordRef) {
	if s.search == nil {
		return
	}
	for _, ref := range refs {
		s.search.DeleteAsync(ref.recordType, ref.id)
	}
}

type TaskInput struct {
	Title   string
	Notes   string
	DueDate *time.Time
	RecordShareInput
}

func (s *Service) AddTask(ctx context.Context, session Session, personID string, input TaskInput) (store.Task, error) {
	if input.Title == "" {
		return store.Task{}, domainError(422, "VALIDATION_ERROR", "title is required", nil)
	}
	person, err := s.loadContributablePerson(ctx, session, personID)
	if err != nil {
		return store.Task{}, err
	}
	fromName, fromEmail := s.recordOrigin(session, person)
	task := store.Task{
		ID:                 util.NewID("tsk"),
		PersonID:           person.ID,
		Title:              input.Title,
		Notes:              input.Notes,
		DueDate:            input.DueDate,
		CreatedByAccountID: session.AccountID,
		SharedFromName:     fromName,
		SharedFromEmail:    fromEmail,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return store.Task{}, err
	}
	if err := s.applyRecordShares(ctx, session, person, store.RecordTask, task.ID, input.RecordShareInput); err != nil {
		return store.Task{}, err
	}
	s.indexRecord(search.Document{
		ID:       task.ID,
		Type:     store.RecordTask,
		PersonID: person.ID,
		Title:    task.Title,
		Body:     task.Notes,
	})
	return task, nil
}

type HealthEntryInput struct {
	Title      string
	Kind       string
	Value      string
	Unit       string
	RecordedAt *time.Time
	RecordShareInput
}

func (s *Service) AddHealthEntry(ctx context.Context, session Session, personID string, input HealthEntryInput) (store.HealthEntry, error) {
	if input.Title == "" {
		return store.HealthEntry{}, domainError(422, "VALIDATION_ERROR", "title is required", nil)
	}
	person, err := s.loadContributablePerson(ctx, session, personID)
	if err != nil {
		return store.HealthEntry{}, err
	}
	fromName, fromEmail := s.recordOrigin(session, person)
	entry := store.HealthEntry{
		ID:                 util.NewID("hlt"),
		PersonID:           person.ID,
		Title:              input.Title,
		Kind:               input.Kind,
		Value:              input.Value,
		Unit:               input.Unit,
		RecordedAt:         input.RecordedAt,
		CreatedByAccountID: session.AccountID,
		SharedFromName:     fromName,
		SharedFromEmail:    fromEmail,
	}
	if err := s.store.InsertHealthEntry(ctx, entry); err != nil {
		return store.HealthEntry{}, err
	}
	if err := s.applyRecordShares(ctx, session, person, store.RecordHealth, entry.ID, input.RecordShareInput); err != nil {
		return store.HealthEntry{}, err
	}
	s.indexRecord(search.Document{
		ID:       entry.ID,
		Type:     store.RecordHealth,
		PersonID: person.ID,
		Title:    entry.Title,
		Body:     entry.Kind + " " + entry.Value,
	})
	return entry, nil
}

type NoteInput struct {
	Title  string
	Body   string
	Pinned bool
	RecordShareInput
}

func (s *Service) AddNote(ctx context.Context, session Session, personID string, input NoteInput) (store.Note, error) {
	if input.Title == "" {
		return store.Note{}, domainError(422, "VALIDATION_ERROR", "title is required", nil)
	}
	person, err := s.loadContributablePerson(ctx, session, personID)
	if err != nil {
		return store.Note{}, err
	}
	fromName, fromEmail := s.recordOrigin(session, person)
	note := store.Note{
		ID:                 util.NewID("nte"),
		PersonID:           person.ID,
		Title:              input.Title,
		Body:               input.Body,
		Pinned:             input.Pinned,
		CreatedByAccountID: session.AccountID,
		SharedFromName:     fromName,
		SharedFromEmail:    fromEmail,
	}
	if err := s.store.InsertNote(ctx, note); err != nil {
		return store.Note{}, err
	}
	if err := s.applyRecordShares(ctx, session, person, store.RecordNote, note.ID, input.RecordShareInput); err != nil {
		return store.Note{}, err
	}
	s.indexRecord(search.Document{
		ID:       note.ID,
		Type:     store.RecordNote,
		PersonID: person.ID,
		Title:    note.Title,
		Body:     note.Body,
	})
	return note, nil
}

type FinancialEntryInput struct {
	Title       string
	AmountCents int64
	Currency    string
	Category    string
	OccurredAt  *time.Time
	RecordShareInput
}

func (s *Service) AddFinancialEntry(ctx context.Context, session Session, personID string, input FinancialEntryInput) (store.FinancialEntry, error) {
	if input.Title == "" {
		return store.FinancialEntry{}, domainError(422, "VALIDATION_ERROR", "title is required", nil)
	}
	person, err := s.loadContributablePerson(ctx, session, personID)
	if err != nil {
		return store.FinancialEntry{}, err
	}
	fromName, fromEmail := s.recordOrigin(session, person)
	entry := store.FinancialEntry{
		ID:                 util.NewID("fin"),
		PersonID:           person.ID,
		Title:              input.Title,
		AmountCents:        input.AmountCents,
		Currency:           input.Currency,
		Category:           input.Category,
		OccurredAt:         input.OccurredAt,
		CreatedByAccountID: session.AccountID,
		SharedFromName:     fromName,
		SharedFromEmail:    fromEmail,
	}
	if err := s.store.InsertFinancialEntry(ctx, entry); err != nil {
		return store.FinancialEntry{}, err
	}
	if err := s.applyRecordShares(ctx, session, person, store.RecordFinance, entry.ID, input.RecordShareInput); err != nil {
		return store.FinancialEntry{}, err
	}
	s.indexRecord(search.Document{
		ID:       entry.ID,
		Type:     store.RecordFinance,
		PersonID: person.ID,
		Title:    entry.Title,
		Body:     entry.Category,
	})
	return entry, nil
}

// SearchRecords runs a full text query scoped to persons the account can
// open, so search can never leak records outside the viewer's grants.
func (s *Service) SearchRecords(ctx context.Context, session Session, query, filterType string, limit int) (search.Response, error) {
	if s.search == nil {
		return search.Response{}, domainError(503, "SEARCH_UNAVAILABLE", "search is not configured", nil)
	}
	summaries, err := s.ListPersons(ctx, session)
	if err != nil {
		return search.Response{}, err
	}
	personIDs := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		personIDs = append(personIDs, summary.Person.ID)
	}
	if len(personIDs) == 0 {
		return search.Response{Results: []search.Result{}, Query: query}, nil
	}
	return s.search.Search(ctx, search.Query{Text: query, FilterType: filterType, PersonIDs: personIDs, Limit: limit}), nil
}
