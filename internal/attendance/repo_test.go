package attendance

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"hrattendance/internal/store"
	"hrattendance/internal/tenant"
)

// RepositoryTestSuite runs the engine against Postgres. It needs
// HR_TEST_DATABASE_URL pointing at a disposable database.
type RepositoryTestSuite struct {
	suite.Suite
	db     *store.DB
	engine *Engine
	repo   *Repository
}

func TestRepositoryTestSuite(t *testing.T) {
	if os.Getenv("HR_TEST_DATABASE_URL") == "" {
		t.Skip("HR_TEST_DATABASE_URL not set")
	}
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupSuite() {
	db, err := store.NewDB(context.Background(), os.Getenv("HR_TEST_DATABASE_URL"))
	s.Require().NoError(err)
	s.Require().NoError(store.Migrate(db.Client, "file://../../migrations", slog.Default()))
	s.db = db
	s.repo = NewRepository(db.Client)
	s.engine = NewEngine(s.repo, ist)
}

func (s *RepositoryTestSuite) TearDownSuite() {
	s.NoError(s.db.Close())
}

func (s *RepositoryTestSuite) subject() Subject {
	return Subject{ID: "emp-" + uuid.NewString(), Kind: KindEmployee, TenantID: "root"}
}

func (s *RepositoryTestSuite) race(n int, fn func() error) (ok int, errs []error) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := fn()
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}()
	}
	close(start)
	wg.Wait()
	return ok, errs
}

func (s *RepositoryTestSuite) TestConcurrentCheckInsCreateOneRecord() {
	ctx := context.Background()
	subj := s.subject()

	ok, errs := s.race(16, func() error {
		_, err := s.engine.CheckIn(ctx, subj, at(9, 0), tenant.DefaultAttendance())
		return err
	})
	s.Equal(1, ok)
	s.Len(errs, 15)
	for _, err := range errs {
		s.ErrorIs(err, ErrAlreadyCheckedIn)
	}

	rec, err := s.repo.FindDay(ctx, subj, at(0, 0))
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.Equal(CheckedIn, rec.State())
	s.Equal("09:00", rec.LoginTime)
}

func (s *RepositoryTestSuite) TestConcurrentCheckOutsCloseOnce() {
	ctx := context.Background()
	subj := s.subject()
	_, err := s.engine.CheckIn(ctx, subj, at(9, 0), tenant.DefaultAttendance())
	s.Require().NoError(err)

	ok, errs := s.race(8, func() error {
		_, err := s.engine.CheckOut(ctx, subj, at(17, 30), tenant.DefaultAttendance())
		return err
	})
	s.Equal(1, ok)
	for _, err := range errs {
		s.ErrorIs(err, ErrAlreadyCheckedOut)
	}

	rec, err := s.repo.FindDay(ctx, subj, at(0, 0))
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.Equal(CheckedOut, rec.State())
	s.Require().NotNil(rec.TotalHours)
	s.Equal(8.5, *rec.TotalHours)
}

func (s *RepositoryTestSuite) TestAbsentDayCanStillBeStarted() {
	ctx := context.Background()
	subj := s.subject()

	_, err := s.engine.MarkAbsent(ctx, subj, at(0, 0))
	s.Require().NoError(err)
	rec, err := s.engine.CheckIn(ctx, subj, at(10, 5), tenant.DefaultAttendance())
	s.Require().NoError(err)
	s.Equal(StatusPresent, rec.Status)

	_, err = s.engine.MarkAbsent(ctx, subj, at(0, 0))
	s.ErrorIs(err, ErrDayStarted)
}

func (s *RepositoryTestSuite) TestListOpenPagesByID() {
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := s.engine.CheckIn(ctx, s.subject(), at(9, 0), tenant.DefaultAttendance())
		s.Require().NoError(err)
		ids = append(ids, rec.ID)
	}

	seen := map[string]bool{}
	after := ""
	for {
		batch, err := s.repo.ListOpen(ctx, at(0, 0), after, 2)
		s.Require().NoError(err)
		if len(batch) == 0 {
			break
		}
		for _, rec := range batch {
			s.Greater(rec.ID, after)
			seen[rec.ID] = true
			after = rec.ID
		}
	}
	for _, id := range ids {
		s.True(seen[id], id)
	}
}
