package pruner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tmsops/core/schedule"
	"tmsops/core/stats"
	"tmsops/core/tms"

	"go.uber.org/zap"
)

// Service enforces a per-project seat quota: users provisioned after the
// cutoff are counted, and when they exceed the limit the excess portion
// is removed. Users created before the cutoff are never candidates.
//
// The excess is taken from the newest end of the post-cutoff set: users
// are sorted descending by creation time and the first count-limit are
// deleted. That mirrors the deployed behavior exactly.
type Service struct {
	client   *tms.Client
	log      *zap.Logger
	counters *stats.Counters

	// Limit is the maximum number of post-cutoff users kept per project.
	Limit int
	// Cutoff is the provisioning timestamp before which users are exempt.
	Cutoff time.Time
	// DryRun skips deletions; users that would be removed count as success.
	DryRun bool
	// Concurrency bounds simultaneous deletion calls.
	Concurrency int
	// Progress, when set, is called once per completed deletion.
	Progress func()
}

// NewService creates the pruning service.
func NewService(client *tms.Client, log *zap.Logger) *Service {
	return &Service{
		client:      client,
		log:         log,
		counters:    &stats.Counters{},
		Limit:       150,
		Concurrency: 10,
	}
}

// Run walks every project and prunes its over-quota users. A failed
// project listing is a setup failure; a failed user listing only skips
// that project.
func (s *Service) Run(ctx context.Context) (stats.Summary, error) {
	projects, err := tms.Paginate[tms.Project](ctx, s.client, tms.ListProjects, nil, tms.ListOptions{})
	if err != nil {
		return s.counters.Snapshot(), fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		return s.counters.Snapshot(), fmt.Errorf("no projects found")
	}

	sched := schedule.New(s.Concurrency, s.log)
	if s.Progress != nil {
		sched.OnProgress(func(int64) { s.Progress() })
	}

	for _, project := range projects {
		if ctx.Err() != nil {
			break
		}
		s.pruneProject(ctx, sched, project)
	}

	sched.Wait()
	return s.counters.Snapshot(), ctx.Err()
}

// pruneProject selects the over-quota users of one project and schedules
// their deletion.
func (s *Service) pruneProject(ctx context.Context, sched *schedule.Scheduler, project tms.Project) {
	log := s.log.With(zap.String("project", project.ID))

	users, err := tms.Paginate[tms.User](ctx, s.client, tms.ListUsers,
		map[string]string{"projectId": project.ID}, tms.ListOptions{})
	if err != nil {
		// One project's traversal failing does not block the others.
		log.Error("failed to list users", zap.Error(err))
		s.counters.AddError()
		return
	}
	if len(users) == 0 {
		log.Debug("no users found")
		return
	}

	victims := s.selectExcess(log, users)
	if len(victims) == 0 {
		log.Debug("user count within limit")
		return
	}
	log.Info("removing over-quota users",
		zap.Int("count", len(victims)), zap.Int("limit", s.Limit))

	for _, user := range victims {
		user := user

		if s.DryRun {
			s.counters.AddSuccess()
			if s.Progress != nil {
				s.Progress()
			}
			continue
		}

		sched.Go(ctx, "user/"+user.ID, func(ctx context.Context) error {
			return s.remove(ctx, project.ID, user.ID)
		})
	}
}

// selectExcess filters users to those created after the cutoff, sorts
// them newest first, and returns the portion above the limit. Records
// missing an ID or a parsable created_at are skipped, not fatal.
func (s *Service) selectExcess(log *zap.Logger, users []tms.User) []tms.User {
	type datedUser struct {
		user tms.User
		at   time.Time
	}

	candidates := make([]datedUser, 0, len(users))
	for _, user := range users {
		if user.ID == "" {
			log.Warn("user record missing id, skipping",
				zap.String("username", user.Username))
			s.counters.AddSkipped()
			continue
		}
		at, err := user.CreatedTime()
		if err != nil {
			log.Warn("user record missing created_at, skipping",
				zap.String("user", user.ID))
			s.counters.AddSkipped()
			continue
		}
		if !at.After(s.Cutoff) {
			continue
		}
		candidates = append(candidates, datedUser{user: user, at: at})
	}

	excess := len(candidates) - s.Limit
	if excess <= 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].at.After(candidates[j].at)
	})

	victims := make([]tms.User, excess)
	for i := 0; i < excess; i++ {
		victims[i] = candidates[i].user
	}
	return victims
}

// remove deletes one user from one project and classifies the outcome.
func (s *Service) remove(ctx context.Context, projectID, userID string) error {
	res, err := s.client.Do(ctx, tms.DeleteUser,
		map[string]string{"projectId": projectID, "userId": userID}, nil, nil)
	if err != nil {
		s.counters.AddError()
		return err
	}

	if !res.OK() {
		s.counters.AddError()
		return fmt.Errorf("remove user %q from project %q: %w", userID, projectID, res.Err())
	}

	s.log.Info("removed user",
		zap.String("project", projectID), zap.String("user", userID))
	s.counters.AddSuccess()
	return nil
}
