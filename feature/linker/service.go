package linker

import (
	"context"
	"fmt"
	"strings"

	"tmsops/core/schedule"
	"tmsops/core/stats"
	"tmsops/core/tms"

	"go.uber.org/zap"
)

// lookupBatchSize caps how many key names travel in one q= filter.
const lookupBatchSize = 100

// Service links translation keys in a parent project to same-named keys
// in every other project. Matching is by exact, case-sensitive name.
//
// Before scheduling any link creation, existing links for the parent's
// keys are fetched and a child key already linked to any parent key is
// excluded for the rest of the run, so a link creation for a given child
// is issued at most once.
type Service struct {
	client   *tms.Client
	log      *zap.Logger
	counters *stats.Counters

	// DryRun skips link-creation calls; planned links count as success.
	DryRun bool
	// Concurrency bounds simultaneous link-creation calls.
	Concurrency int
	// Progress, when set, is called once per completed link batch.
	Progress func()
}

// NewService creates the linking service.
func NewService(client *tms.Client, log *zap.Logger) *Service {
	return &Service{
		client:      client,
		log:         log,
		counters:    &stats.Counters{},
		Concurrency: 10,
	}
}

// Plan is the diffed set of link creations for one run, keyed by parent
// key ID.
type Plan struct {
	Links map[string][]string
	// Planned is the number of parent keys with at least one new link.
	Planned int
}

// Run fetches current state, diffs it against the desired linking, and
// dispatches the necessary link creations. A missing parent project or a
// failed project listing is a setup failure; per-key problems are
// counted and reported.
func (s *Service) Run(ctx context.Context, parentProjectID string) (stats.Summary, error) {
	projects, err := tms.Paginate[tms.Project](ctx, s.client, tms.ListProjects, nil, tms.ListOptions{})
	if err != nil {
		return s.counters.Snapshot(), fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		return s.counters.Snapshot(), fmt.Errorf("no projects found")
	}

	if !containsProject(projects, parentProjectID) {
		return s.counters.Snapshot(), fmt.Errorf("parent project %q not found", parentProjectID)
	}

	parentKeys, err := tms.Paginate[tms.Key](ctx, s.client, tms.ListKeys,
		map[string]string{"projectId": parentProjectID}, tms.ListOptions{})
	if err != nil {
		return s.counters.Snapshot(), fmt.Errorf("failed to list parent keys: %w", err)
	}
	s.log.Info("fetched parent keys",
		zap.String("project", parentProjectID),
		zap.Int("count", len(parentKeys)))

	linked := s.fetchExistingLinks(ctx, parentProjectID, parentKeys)

	children := filterChildProjects(projects, parentProjectID)
	s.log.Info("found child projects", zap.Int("count", len(children)))

	plan, err := s.diff(ctx, parentProjectID, parentKeys, children, linked)
	if err != nil {
		return s.counters.Snapshot(), err
	}

	s.apply(ctx, parentProjectID, plan)
	return s.counters.Snapshot(), ctx.Err()
}

// fetchExistingLinks collects the already-linked child key IDs for each
// parent key. The API answers 400 when a key has no links yet. A failed
// fetch only degrades dedup for that key; the run continues.
func (s *Service) fetchExistingLinks(ctx context.Context, parentProjectID string, parentKeys []tms.Key) map[string]struct{} {
	linked := make(map[string]struct{})

	for _, key := range parentKeys {
		if ctx.Err() != nil {
			return linked
		}

		res, err := s.client.Do(ctx, tms.ListKeyLinks,
			map[string]string{"projectId": parentProjectID, "keyId": key.ID}, nil, nil)
		if err != nil {
			s.log.Error("failed to fetch existing links",
				zap.String("key", key.ID), zap.Error(err))
			s.counters.AddError()
			continue
		}
		if res.Status == 400 {
			// No links exist for this key yet.
			continue
		}
		if !res.OK() {
			s.log.Error("failed to fetch existing links",
				zap.String("key", key.ID), zap.Error(res.Err()))
			s.counters.AddError()
			continue
		}

		var links tms.KeyLinks
		if !res.Decode(&links) {
			continue
		}
		for _, child := range links.Children {
			linked[child.ID] = struct{}{}
		}
	}

	return linked
}

// diff computes the minimal link-creation set. Parent keys are looked up
// in child projects in batches of 100 via the q=name: filter; candidates
// already linked to any observed parent are excluded globally.
func (s *Service) diff(ctx context.Context, parentProjectID string, parentKeys []tms.Key, children []tms.Project, linked map[string]struct{}) (*Plan, error) {
	plan := &Plan{Links: make(map[string][]string)}

	for start := 0; start < len(parentKeys); start += lookupBatchSize {
		end := start + lookupBatchSize
		if end > len(parentKeys) {
			end = len(parentKeys)
		}
		batch := parentKeys[start:end]

		names := make([]string, 0, len(batch))
		for _, key := range batch {
			if key.Name != "" {
				names = append(names, key.Name)
			}
		}
		if len(names) == 0 {
			continue
		}
		filter := "name:" + strings.Join(names, ",")

		for _, child := range children {
			if ctx.Err() != nil {
				return plan, ctx.Err()
			}

			childKeys, err := tms.Paginate[tms.Key](ctx, s.client, tms.ListKeys,
				map[string]string{"projectId": child.ID}, tms.ListOptions{Query: filter})
			if err != nil {
				// One child project failing does not block the others.
				s.log.Error("failed to list keys in child project",
					zap.String("project", child.ID), zap.Error(err))
				s.counters.AddError()
				continue
			}

			byName := make(map[string]string, len(childKeys))
			for _, key := range childKeys {
				byName[key.Name] = key.ID
			}

			for _, parentKey := range batch {
				if parentKey.ID == "" || parentKey.Name == "" {
					continue
				}
				childID, ok := byName[parentKey.Name]
				if !ok {
					continue
				}
				if _, already := linked[childID]; already {
					s.log.Debug("child key already linked",
						zap.String("child_key", childID))
					s.counters.AddSkipped()
					continue
				}
				// Claim the child immediately: global dedup across
				// parents within this run.
				linked[childID] = struct{}{}
				plan.Links[parentKey.ID] = append(plan.Links[parentKey.ID], childID)
			}
		}
	}

	plan.Planned = len(plan.Links)
	return plan, nil
}

// apply dispatches one link-creation call per parent key through the
// bounded scheduler.
func (s *Service) apply(ctx context.Context, parentProjectID string, plan *Plan) {
	if plan.Planned == 0 {
		s.log.Info("no new links to create")
		return
	}
	s.log.Info("scheduling link creations", zap.Int("count", plan.Planned))

	sched := schedule.New(s.Concurrency, s.log)
	if s.Progress != nil {
		sched.OnProgress(func(int64) { s.Progress() })
	}

	for parentKeyID, childIDs := range plan.Links {
		parentKeyID, childIDs := parentKeyID, childIDs

		if s.DryRun {
			s.counters.AddSuccess()
			if s.Progress != nil {
				s.Progress()
			}
			continue
		}

		sched.Go(ctx, "link/"+parentKeyID, func(ctx context.Context) error {
			return s.link(ctx, parentProjectID, parentKeyID, childIDs)
		})
	}

	sched.Wait()
}

// link creates the parent -> children links and classifies the outcome.
func (s *Service) link(ctx context.Context, parentProjectID, parentKeyID string, childIDs []string) error {
	res, err := s.client.Do(ctx, tms.CreateKeyLink,
		map[string]string{"projectId": parentProjectID, "keyId": parentKeyID},
		nil, tms.KeyLinkRequest{ChildKeyIDs: childIDs})
	if err != nil {
		s.counters.AddError()
		return err
	}

	switch {
	case res.OK():
		s.log.Info("linked keys",
			zap.String("parent_key", parentKeyID),
			zap.Int("children", len(childIDs)))
		s.counters.AddSuccess()
		return nil
	case res.Status == 409:
		s.counters.AddSkipped()
		return nil
	default:
		s.counters.AddError()
		return fmt.Errorf("link parent key %q: %w", parentKeyID, res.Err())
	}
}

func containsProject(projects []tms.Project, id string) bool {
	for _, p := range projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func filterChildProjects(projects []tms.Project, parentID string) []tms.Project {
	children := make([]tms.Project, 0, len(projects))
	for _, p := range projects {
		if p.ID != parentID {
			children = append(children, p)
		}
	}
	return children
}
