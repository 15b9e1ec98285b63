package app

import (
	"context"
	"database/sql"
	"errors"

	"hearth/api/internal/store"
)

// RecordAttribution is attached to every record in a composed view so the
// client can label who a record came from without another round trip.
type RecordAttribution struct {
	Mine          bool   `json:"mine"`
	SharedBy      string `json:"sharedBy,omitempty"`
	SharedByEmail string `json:"sharedByEmail,omitempty"`
}

type TaskView struct {
	store.Task
	Attribution RecordAttribution `json:"attribution"`
}

type HealthEntryView struct {
	store.HealthEntry
	Attribution RecordAttribution `json:"attribution"`
}

type NoteView struct {
	store.Note
	Attribution RecordAttribution `json:"attribution"`
}

type FinancialEntryView struct {
	store.FinancialEntry
	Attribution RecordAttribution `json:"attribution"`
}

type Collaborator struct {
	ShareID   string `json:"shareId"`
	AccountID string `json:"accountId,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

type PersonView struct {
	Person           store.Person         `json:"person"`
	IsOwner          bool                 `json:"isOwner"`
	Tasks            []TaskView           `json:"tasks"`
	HealthEntries    []HealthEntryView    `json:"healthEntries"`
	Notes            []NoteView           `json:"notes"`
	FinancialEntries []FinancialEntryView `json:"financialEntries"`
	Collaborators    []Collaborator       `json:"collaborators"`
}

type viewerIdentity struct {
	AccountID string
	Email     string
}

// recordIDSet holds the item-shared record ids for one partially visible
// person, keyed by record type.
type recordIDSet map[string]map[string]struct{}

func (r recordIDSet) add(recordType, recordID string) {
	if r[recordType] == nil {
		r[recordType] = map[string]struct{}{}
	}
	r[recordType][recordID] = struct{}{}
}

func (r recordIDSet) has(recordType, recordID string) bool {
	_, ok := r[recordType][recordID]
	return ok
}

// resolution is the union of what the grant resolvers produced: persons
// whose records are fully visible to the viewer, and persons visible only
// through item shares.
type resolution struct {
	full    map[string]struct{}
	partial map[string]recordIDSet
}

func newResolution() *resolution {
	return &resolution{
		full:    map[string]struct{}{},
		partial: map[string]recordIDSet{},
	}
}

func (r *resolution) allow(personID, recordType, recordID string) {
	if r.partial[personID] == nil {
		r.partial[personID] = recordIDSet{}
	}
	r.partial[personID].add(recordType, recordID)
}

func (r *resolution) personIDs() []string {
	ids := make([]string, 0, len(r.full)+len(r.partial))
	for id := range r.full {
		ids = append(ids, id)
	}
	for id := range r.partial {
		if _, ok := r.full[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// visible reports whether one record passes the union of grant paths. A
// viewer always sees their own contributions on any person they can open.
func (r *resolution) visible(viewer viewerIdentity, personID, recordType, recordID, createdBy string) bool {
	if _, ok := r.full[personID]; ok {
		return true
	}
	if createdBy == viewer.AccountID {
		return true
	}
	return r.partial[personID].has(recordType, recordID)
}

// A grantResolver contributes one access path to the composed view. The
// composer unions whatever each resolver yields; resolvers never subtract.
type grantResolver interface {
	resolve(ctx context.Context, s *Service, viewer viewerIdentity, person store.Person, res *resolution) error
}

// ownerResolver: the person's owner sees every record on it.
type ownerResolver struct{}

func (ownerResolver) resolve(_ context.Context, _ *Service, viewer viewerIdentity, person store.Person, res *resolution) error {
	if person.OwnerAccountID == viewer.AccountID {
		res.full[person.ID] = struct{}{}
	}
	return nil
}

// itemShareResolver: records on a person someone else owns, reachable
// through item shares keyed to the viewer's person shares. Revoked shares
// are included on purpose: revocation stops future grants, it does not claw
// back records already shared.
type itemShareResolver struct{}

func (itemShareResolver) resolve(ctx context.Context, s *Service, viewer viewerIdentity, person store.Person, res *resolution) error {
	if person.OwnerAccountID == viewer.AccountID {
		return nil
	}
	shares, err := s.store.ListViewerShares(ctx, person.ID, viewer.AccountID, viewer.Email)
	if err != nil {
		return err
	}
	if len(shares) == 0 {
		return nil
	}
	shareIDs := make([]string, 0, len(shares))
	for _, share := range shares {
		shareIDs = append(shareIDs, share.ID)
	}
	itemShares, err := s.store.ListItemSharesForShares(ctx, shareIDs)
	if err != nil {
		return err
	}
	for _, itemShare := range itemShares {
		res.allow(person.ID, itemShare.RecordType, itemShare.RecordID)
	}
	return nil
}

// linkResolver: for every active link on the person, pull in the counterpart
// profile on the other account. A link declares both profiles the same
// logical person, so a viewer who can open this side sees the whole
// counterpart, item shares or not. The composer only runs resolvers after
// the view-level access gate passed.
type linkResolver struct{}

func (linkResolver) resolve(ctx context.Context, s *Service, _ viewerIdentity, person store.Person, res *resolution) error {
	links, err := s.store.ListActiveLinksForPerson(ctx, person.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		counterpartID := link.ProfileAID
		if counterpartID == person.ID {
			counterpartID = link.ProfileBID
		}
		if _, err := s.store.GetPerson(ctx, counterpartID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return err
		}
		res.full[counterpartID] = struct{}{}
	}
	return nil
}

var viewResolvers = []grantResolver{ownerResolver{}, itemShareResolver{}, linkResolver{}}

// accountLookup caches directory hits for the duration of one compose call.
type accountLookup struct {
	directory AccountDirectory
	cache     map[string]*store.Account
}

func newAccountLookup(directory AccountDirectory) *accountLookup {
	return &accountLookup{directory: directory, cache: map[string]*store.Account{}}
}

func (l *accountLookup) get(ctx context.Context, accountID string) *store.Account {
	if cached, ok := l.cache[accountID]; ok {
		return cached
	}
	account, err := l.directory.GetAccountByID(ctx, accountID)
	if err != nil {
		l.cache[accountID] = nil
		return nil
	}
	l.cache[accountID] = &account
	return &account
}

func (s *Service) attribution(ctx context.Context, lookup *accountLookup, viewer viewerIdentity, createdBy, fallbackName, fallbackEmail string) RecordAttribution {
	if createdBy == viewer.AccountID {
		return RecordAttribution{Mine: true}
	}
	if account := lookup.get(ctx, createdBy); account != nil {
		return RecordAttribution{SharedBy: account.DisplayName, SharedByEmail: account.Email}
	}
	return RecordAttribution{SharedBy: fallbackName, SharedByEmail: fallbackEmail}
}

// BuildPersonView composes everything the viewer may see about one person:
// the profile, records merged across all grant paths with duplicates dropped
// by record id, and the collaborator list (owner only).
func (s *Service) BuildPersonView(ctx context.Context, session Session, personID string) (PersonView, error) {
	person, err := s.store.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PersonView{}, ErrPersonNotFound
		}
		return PersonView{}, err
	}
	viewer := viewerIdentity{AccountID: session.AccountID, Email: session.Email}

	if person.OwnerAccountID != viewer.AccountID {
		shares, err := s.store.ListViewerShares(ctx, person.ID, viewer.AccountID, viewer.Email)
		if err != nil {
			return PersonView{}, err
		}
		if len(shares) == 0 {
			return PersonView{}, ErrPersonNotFound
		}
	}

	res := newResolution()
	for _, resolver := range viewResolvers {
		if err := resolver.resolve(ctx, s, viewer, person, res); err != nil {
			return PersonView{}, err
		}
	}

	personIDs := res.personIDs()
	view := PersonView{
		Person:           person,
		IsOwner:          person.OwnerAccountID == viewer.AccountID,
		Tasks:            []TaskView{},
		HealthEntries:    []HealthEntryView{},
		Notes:            []NoteView{},
		FinancialEntries: []FinancialEntryView{},
		Collaborators:    []Collaborator{},
	}
	if len(personIDs) == 0 {
		return view, nil
	}

	lookup := newAccountLookup(s.directory)
	seen := map[string]struct{}{}

	tasks, err := s.store.ListTasksForPersons(ctx, personIDs)
	if err != nil {
		return PersonView{}, err
	}
	for _, task := range tasks {
		if _, dup := seen[task.ID]; dup {
			continue
		}
		if !res.visible(viewer, task.PersonID, store.RecordTask, task.ID, task.CreatedByAccountID) {
			continue
		}
		seen[task.ID] = struct{}{}
		view.Tasks = append(view.Tasks, TaskView{
			Task:        task,
			Attribution: s.attribution(ctx, lookup, viewer, task.CreatedByAccountID, task.SharedFromName, task.SharedFromEmail),
		})
	}

	healthEntries, err := s.store.ListHealthEntriesForPersons(ctx, personIDs)
	if err != nil {
		return PersonView{}, err
	}
	for _, entry := range healthEntries {
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		if !res.visible(viewer, entry.PersonID, store.RecordHealth, entry.ID, entry.CreatedByAccountID) {
			continue
		}
		seen[entry.ID] = struct{}{}
		view.HealthEntries = append(view.HealthEntries, HealthEntryView{
			HealthEntry: entry,
			Attribution: s.attribution(ctx, lookup, viewer, entry.CreatedByAccountID, entry.SharedFromName, entry.SharedFromEmail),
		})
	}

	notes, err := s.store.ListNotesForPersons(ctx, personIDs)
	if err != nil {
		return PersonView{}, err
	}
	for _, note := range notes {
		if _, dup := seen[note.ID]; dup {
			continue
		}
		if !res.visible(viewer, note.PersonID, store.RecordNote, note.ID, note.CreatedByAccountID) {
			continue
		}
		seen[note.ID] = struct{}{}
		view.Notes = append(view.Notes, NoteView{
			Note:        note,
			Attribution: s.attribution(ctx, lookup, viewer, note.CreatedByAccountID, note.SharedFromName, note.SharedFromEmail),
		})
	}

	financialEntries, err := s.store.ListFinancialEntriesForPersons(ctx, personIDs)
	if err != nil {
		return PersonView{}, err
	}
	for _, entry := range financialEntries {
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		if !res.visible(viewer, entry.PersonID, store.RecordFinance, entry.ID, entry.CreatedByAccountID) {
			continue
		}
		seen[entry.ID] = struct{}{}
		view.FinancialEntries = append(view.FinancialEntries, FinancialEntryView{
			FinancialEntry: entry,
			Attribution:    s.attribution(ctx, lookup, viewer, entry.CreatedByAccountID, entry.SharedFromName, entry.SharedFromEmail),
		})
	}

	if view.IsOwner {
		collaborators, err := s.listCollaborators(ctx, lookup, session, person.ID)
		if err != nil {
			return PersonView{}, err
		}
		view.Collaborators = collaborators
	}
	return view, nil
}

// listCollaborators returns the active grants on a person. Names prefer the
// owner's own saved contact for the collaborating account.
func (s *Service) listCollaborators(ctx context.Context, lookup *accountLookup, session Session, personID string) ([]Collaborator, error) {
	shares, err := s.store.ListActivePersonShares(ctx, personID)
	if err != nil {
		return nil, err
	}
	collaborators := make([]Collaborator, 0, len(shares))
	for _, share := range shares {
		collaborator := Collaborator{ShareID: share.ID, Email: share.AccountEmail}
		if share.AccountID != nil {
			collaborator.AccountID = *share.AccountID
			if account := lookup.get(ctx, *share.AccountID); account != nil {
				collaborator.Name = account.DisplayName
				if collaborator.Email == "" {
					collaborator.Email = account.Email
				}
			}
			if contactName, err := s.store.FindContactName(ctx, session.AccountID, *share.AccountID, collaborator.Email); err == nil && contactName != "" {
				collaborator.Name = contactName
			}
		}
		collaborators = append(collaborators, collaborator)
	}
	return collaborators, nil
}

type PersonSummary struct {
	Person  store.Person `json:"person"`
	IsOwner bool         `json:"isOwner"`
}

// ListPersons returns every person the account can open: owned profiles
// first, then profiles shared by other accounts, deduplicated by id.
func (s *Service) ListPersons(ctx context.Context, session Session) ([]PersonSummary, error) {
	owned, err := s.store.ListOwnedPersons(ctx, session.AccountID)
	if err != nil {
		return nil, err
	}
	shared, err := s.store.ListSharedPersons(ctx, session.AccountID, session.Email)
	if err != nil {
		return nil, err
	}

	summaries := make([]PersonSummary, 0, len(owned)+len(shared))
	seen := map[string]struct{}{}
	for _, person := range owned {
		seen[person.ID] = struct{}{}
		summaries = append(summaries, PersonSummary{Person: person, IsOwner: true})
	}
	for _, person := range shared {
		if _, dup := seen[person.ID]; dup {
			continue
		}
		seen[person.ID] = struct{}{}
		summaries = append(summaries, PersonSummary{Person: person, IsOwner: false})
	}
	return summaries, nil
}
