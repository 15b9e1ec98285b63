package app

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"hearth/api/internal/store"
)

// Two accounts collaborating on the same logical person: acc-1 owns per-a,
// acc-2 owns per-b, the two profiles are linked. Most view tests start here.
func linkedPairStore() *fakeStore {
	return &fakeStore{
		getPersonFn: func(_ context.Context, personID string) (store.Person, error) {
			switch personID {
			case "per-a":
				return store.Person{ID: "per-a", OwnerAccountID: "acc-1", Name: "Mom"}, nil
			case "per-b":
				return store.Person{ID: "per-b", OwnerAccountID: "acc-2", Name: "Mum"}, nil
			}
			return store.Person{}, sql.ErrNoRows
		},
		listActiveLinksFn: func(_ context.Context, personID string) ([]store.ProfileLink, error) {
			if personID == "per-a" || personID == "per-b" {
				return []store.ProfileLink{{
					ID:         "lnk-1",
					ProfileAID: "per-a",
					ProfileBID: "per-b",
					AccountAID: "acc-1",
					AccountBID: "acc-2",
					IsActive:   true,
				}}, nil
			}
			return nil, nil
		},
		listViewerSharesFn: func(_ context.Context, personID, accountID, _ string) ([]store.PersonShare, error) {
			if personID == "per-b" && accountID == "acc-1" {
				acc := "acc-1"
				return []store.PersonShare{{ID: "shr-1", PersonID: "per-b", AccountID: &acc}}, nil
			}
			if personID == "per-a" && accountID == "acc-2" {
				acc := "acc-2"
				return []store.PersonShare{{ID: "shr-2", PersonID: "per-a", AccountID: &acc}}, nil
			}
			return nil, nil
		},
		listItemSharesForSharesFn: func(_ context.Context, shareIDs []string) ([]store.ItemShare, error) {
			for _, shareID := range shareIDs {
				if shareID == "shr-1" {
					return []store.ItemShare{{ID: "ishr-1", RecordType: store.RecordTask, RecordID: "tsk-shared", PersonShareID: "shr-1", CreatedByAccountID: "acc-2"}}, nil
				}
			}
			return nil, nil
		},
		listTasksForPersonsFn: func(_ context.Context, personIDs []string) ([]store.Task, error) {
			return []store.Task{
				{ID: "tsk-own", PersonID: "per-a", Title: "Refill prescription", CreatedByAccountID: "acc-1"},
				{ID: "tsk-shared", PersonID: "per-b", Title: "Book checkup", CreatedByAccountID: "acc-2"},
				{ID: "tsk-private", PersonID: "per-b", Title: "Surprise gift", CreatedByAccountID: "acc-2"},
				{ID: "tsk-contrib", PersonID: "per-b", Title: "Call pharmacy", CreatedByAccountID: "acc-1"},
			}, nil
		},
	}
}

func TestBuildPersonViewMergesGrantPaths(t *testing.T) {
	service := newTestService(linkedPairStore())

	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-a")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	if !view.IsOwner {
		t.Error("acc-1 should be the owner of per-a")
	}

	got := map[string]bool{}
	for _, task := range view.Tasks {
		got[task.ID] = true
	}
	// The active link makes per-b the same person, so even its records
	// without an item share belong in the view.
	for _, want := range []string{"tsk-own", "tsk-shared", "tsk-private", "tsk-contrib"} {
		if !got[want] {
			t.Errorf("task %s missing from view", want)
		}
	}
}

func TestBuildPersonViewLinkCoversUnsharedCounterpartRecords(t *testing.T) {
	fs := linkedPairStore()
	fs.listItemSharesForSharesFn = func(context.Context, []string) ([]store.ItemShare, error) {
		return nil, nil
	}
	service := newTestService(fs)

	// Not a single item share exists, yet every record on the linked per-b
	// shows up when acc-1 opens per-a.
	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-a")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	got := map[string]bool{}
	for _, task := range view.Tasks {
		got[task.ID] = true
	}
	for _, want := range []string{"tsk-own", "tsk-shared", "tsk-private", "tsk-contrib"} {
		if !got[want] {
			t.Errorf("task %s missing from acc-1's view of per-a", want)
		}
	}

	// And the mirror direction: acc-2 opening per-b sees acc-1's record.
	view, err = service.BuildPersonView(context.Background(), testSession("acc-2", "Bob", "bob@example.com"), "per-b")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	got = map[string]bool{}
	for _, task := range view.Tasks {
		got[task.ID] = true
	}
	if !got["tsk-own"] {
		t.Error("linked record from per-a missing from acc-2's view of per-b")
	}
}

func TestBuildPersonViewAttribution(t *testing.T) {
	fs := linkedPairStore()
	fs.getAccountByIDFn = func(_ context.Context, accountID string) (store.Account, error) {
		if accountID == "acc-2" {
			return store.Account{ID: "acc-2", DisplayName: "Bob", Email: "bob@example.com"}, nil
		}
		return store.Account{ID: accountID}, nil
	}
	service := newTestService(fs)

	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-a")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	byID := map[string]TaskView{}
	for _, task := range view.Tasks {
		byID[task.ID] = task
	}
	if !byID["tsk-own"].Attribution.Mine {
		t.Error("own record not attributed as mine")
	}
	if !byID["tsk-contrib"].Attribution.Mine {
		t.Error("own contribution on linked profile not attributed as mine")
	}
	shared := byID["tsk-shared"].Attribution
	if shared.Mine {
		t.Error("collaborator record attributed as mine")
	}
	if shared.SharedBy != "Bob" || shared.SharedByEmail != "bob@example.com" {
		t.Errorf("attribution = %+v, want Bob / bob@example.com", shared)
	}
}

func TestBuildPersonViewAttributionFallback(t *testing.T) {
	fs := linkedPairStore()
	fs.getAccountByIDFn = func(context.Context, string) (store.Account, error) {
		return store.Account{}, sql.ErrNoRows
	}
	fs.listTasksForPersonsFn = func(context.Context, []string) ([]store.Task, error) {
		return []store.Task{{
			ID: "tsk-shared", PersonID: "per-b", Title: "Book checkup",
			CreatedByAccountID: "acc-2", SharedFromName: "Bobby", SharedFromEmail: "bobby@old.example.com",
		}}, nil
	}
	service := newTestService(fs)

	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-a")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	if len(view.Tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(view.Tasks))
	}
	attribution := view.Tasks[0].Attribution
	if attribution.SharedBy != "Bobby" || attribution.SharedByEmail != "bobby@old.example.com" {
		t.Errorf("attribution = %+v, want denormalized fallback", attribution)
	}
}

func TestBuildPersonViewDeduplicatesRecords(t *testing.T) {
	fs := linkedPairStore()
	fs.listTasksForPersonsFn = func(context.Context, []string) ([]store.Task, error) {
		task := store.Task{ID: "tsk-own", PersonID: "per-a", Title: "Refill prescription", CreatedByAccountID: "acc-1"}
		return []store.Task{task, task}, nil
	}
	service := newTestService(fs)

	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-a")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	if len(view.Tasks) != 1 {
		t.Errorf("got %d tasks, want 1 after dedup", len(view.Tasks))
	}
}

func TestBuildPersonViewRevocationNotRetroactive(t *testing.T) {
	fs := linkedPairStore()
	revokedAt := time.Now().Add(-time.Hour)
	// acc-1's grant on per-b is revoked and the link is gone, but the item
	// share rows remain.
	fs.listActiveLinksFn = func(context.Context, string) ([]store.ProfileLink, error) {
		return nil, nil
	}
	fs.listViewerSharesFn = func(_ context.Context, personID, accountID, _ string) ([]store.PersonShare, error) {
		if personID == "per-b" && accountID == "acc-1" {
			acc := "acc-1"
			return []store.PersonShare{{ID: "shr-1", PersonID: "per-b", AccountID: &acc, RevokedAt: &revokedAt}}, nil
		}
		return nil, nil
	}
	service := newTestService(fs)

	// Viewing the counterpart directly: the item-shared record stays
	// visible through the revoked share, new records do not.
	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-b")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	got := map[string]bool{}
	for _, task := range view.Tasks {
		got[task.ID] = true
	}
	if !got["tsk-shared"] {
		t.Error("previously shared record vanished after revocation")
	}
	if got["tsk-private"] {
		t.Error("unshared record became visible")
	}
	if view.IsOwner {
		t.Error("viewer is not the owner of per-b")
	}
}

func TestBuildPersonViewDeniesStranger(t *testing.T) {
	service := newTestService(linkedPairStore())

	_, err := service.BuildPersonView(context.Background(), testSession("acc-9", "Eve", "eve@example.com"), "per-a")
	if !errors.Is(err, ErrPersonNotFound) {
		t.Fatalf("err = %v, want ErrPersonNotFound", err)
	}
}

func TestBuildPersonViewCollaborators(t *testing.T) {
	fs := linkedPairStore()
	fs.listActivePersonSharesFn = func(_ context.Context, personID string) ([]store.PersonShare, error) {
		if personID != "per-a" {
			return nil, nil
		}
		acc := "acc-2"
		return []store.PersonShare{
			{ID: "shr-2", PersonID: "per-a", AccountID: &acc},
			{ID: "shr-3", PersonID: "per-a", AccountEmail: "pending@example.com"},
		}, nil
	}
	fs.getAccountByIDFn = func(_ context.Context, accountID string) (store.Account, error) {
		return store.Account{ID: accountID, DisplayName: "Bob", Email: "bob@example.com"}, nil
	}
	fs.findContactNameFn = func(_ context.Context, _, contactAccountID, _ string) (string, error) {
		if contactAccountID == "acc-2" {
			return "Brother Bob", nil
		}
		return "", nil
	}
	service := newTestService(fs)

	view, err := service.BuildPersonView(context.Background(), testSession("acc-1", "Ana", "ana@example.com"), "per-a")
	if err != nil {
		t.Fatalf("BuildPersonView: %v", err)
	}
	if len(view.Collaborators) != 2 {
		t.Fatalf("got %d collaborators, want 2", len(view.Collaborators))
	}
	if view.Collaborators[0].Name != "Brother Bob" {
		t.Errorf("collaborator name = %q, want saved contact name", view.Collaborators[0].Name)
	}
	if view.Collaborators[1].AccountID != "" || view.Collaborators[1].Email != "pending@example.com" {
		t.Errorf("email-only collaborator = %+v", view.Collaborators[1])
	}
}

func TestListPersonsDeduplicates(t *testing.T) {
	fs := &fakeStore{
		listOwnedPersonsFn: func(context.Context, string) ([]store.Person, error) {
			return []store.Person{{ID: "per-a", OwnerAccountID: "acc-1"}}, nil
		},
		listSharedPersonsFn: func(context.Context, string, string) ([]store.Person, error) {
			return []store.Person{
				{ID: "per-a", OwnerAccountID: "acc-1"},
				{ID: "per-b", OwnerAccountID: "acc-2"},
			}, nil
		},
	}
	service := newTestService(fs)

	summaries, err := service.ListPersons(context.Background(), testSession("acc-1", "Ana", "ana@example.com"))
	if err != nil {
		t.Fatalf("ListPersons: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d persons, want 2", len(summaries))
	}
	if !summaries[0].IsOwner || summaries[0].Person.ID != "per-a" {
		t.Errorf("first summary = %+v, want owned per-a", summaries[0])
	}
	if summaries[1].IsOwner || summaries[1].Person.ID != "per-b" {
		t.Errorf("second summary = %+v, want shared per-b", summaries[1])
	}
}
