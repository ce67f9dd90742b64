package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/auth"
	"github.com/lshigami/quizhub/internal/model"
	"github.com/lshigami/quizhub/internal/repository"
	"gorm.io/gorm"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Quiz.DefaultSize = 10
	cfg.Quiz.MaxSize = 50
	cfg.Upload.MaxBytes = 1 << 20
	cfg.Upload.MaxRows = 100
	cfg.Upload.CollapseWhitespace = true
	cfg.Analytics.ChurnInactiveDays = 30
	cfg.Suggestion.Timeout = 50 * time.Millisecond
	return cfg
}

func userIdentity() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Email: "learner@example.com", Role: model.RoleUser}
}

func adminIdentity() auth.Identity {
	return auth.Identity{UserID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}
}

// fakeQuestionRepo keeps questions in memory. Deleted rows are dropped from
// live queries but still found by FindByIDs.
type fakeQuestionRepo struct {
	mu        sync.Mutex
	nextID    uint
	questions map[uint]*model.Question
	deleted   map[uint]bool
	// referenced marks ids used by a submitted session.
	referenced map[uint]bool
	// stolenKeys makes BulkInsert lose these keys as if a concurrent insert won.
	stolenKeys map[string]uint
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		questions:  map[uint]*model.Question{},
		deleted:    map[uint]bool{},
		referenced: map[uint]bool{},
		stolenKeys: map[string]uint{},
	}
}

func (r *fakeQuestionRepo) seed(text, correct string, category string) *model.Question {
	q := &model.Question{
		QuestionText:  text,
		OptionA:       "a",
		OptionB:       "b",
		OptionC:       "c",
		OptionD:       "d",
		CorrectAnswer: correct,
		TextKey:       TextKeyPolicy{CollapseWhitespace: true}.Key(text),
	}
	if category != "" {
		q.Category = &category
	}
	_ = r.Create(context.Background(), q)
	return q
}

func (r *fakeQuestionRepo) live(q *model.Question) bool {
	return !q.Retired && !r.deleted[q.ID]
}

func (r *fakeQuestionRepo) Create(_ context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.questions {
		if r.live(existing) && existing.TextKey == q.TextKey {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	q.ID = r.nextID
	cp := *q
	r.questions[q.ID] = &cp
	return nil
}

func (r *fakeQuestionRepo) FindByID(_ context.Context, id uint) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok || r.deleted[id] {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *q
	return &cp, nil
}

func (r *fakeQuestionRepo) FindByIDs(_ context.Context, ids []uint) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Question
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) matches(q *model.Question, f repository.QuestionFilter) bool {
	if !r.live(q) {
		return false
	}
	if f.Category != nil && (q.Category == nil || !strings.EqualFold(*q.Category, *f.Category)) {
		return false
	}
	if f.Difficulty != nil && (q.Difficulty == nil || *q.Difficulty != *f.Difficulty) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(q.QuestionText), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func (r *fakeQuestionRepo) sorted() []*model.Question {
	out := make([]*model.Question, 0, len(r.questions))
	for _, q := range r.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeQuestionRepo) List(_ context.Context, f repository.QuestionFilter, page repository.Page) ([]model.Question, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Question
	for _, q := range r.sorted() {
		if r.matches(q, f) {
			all = append(all, *q)
		}
	}
	total := int64(len(all))
	if page.Offset >= len(all) {
		return nil, total, nil
	}
	end := page.Offset + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[page.Offset:end], total, nil
}

// PickRandom is deterministic here: lowest ids first.
func (r *fakeQuestionRepo) PickRandom(_ context.Context, f repository.QuestionFilter, limit int) ([]model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Question
	for _, q := range r.sorted() {
		if len(out) == limit {
			break
		}
		if r.matches(q, f) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *fakeQuestionRepo) FindLiveByTextKeys(_ context.Context, keys []string) (map[string]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	found := map[string]uint{}
	for _, k := range keys {
		for _, q := range r.questions {
			if r.live(q) && q.TextKey == k {
				found[k] = q.ID
			}
		}
	}
	return found, nil
}

func (r *fakeQuestionRepo) BulkInsert(ctx context.Context, questions []model.Question) ([]bool, error) {
	inserted := make([]bool, len(questions))
	for i := range questions {
		if id, stolen := r.stolenKeys[questions[i].TextKey]; stolen {
			r.mu.Lock()
			cp := questions[i]
			cp.ID = id
			r.questions[id] = &cp
			r.mu.Unlock()
			continue
		}
		if err := r.Create(ctx, &questions[i]); err == nil {
			inserted[i] = true
		}
	}
	return inserted, nil
}

func (r *fakeQuestionRepo) Update(_ context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *q
	r.questions[q.ID] = &cp
	return nil
}

func (r *fakeQuestionRepo) ReplaceWithCopy(ctx context.Context, originalID uint, replacement *model.Question) error {
	if err := r.Retire(ctx, originalID); err != nil {
		return err
	}
	replacement.ID = 0
	return r.Create(ctx, replacement)
}

func (r *fakeQuestionRepo) Retire(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.questions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Retired = true
	return nil
}

func (r *fakeQuestionRepo) Delete(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.questions[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.deleted[id] = true
	return nil
}

func (r *fakeQuestionRepo) IsReferencedBySubmitted(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.referenced[id], nil
}

// fakeSessionStore backs both the session and answer fakes so that answer
// writes see status changes the way the conditional SQL does.
type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.QuizSession
	answers  map[uuid.UUID]map[int]*model.Answer
	nextAns  uint
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{
		sessions: map[uuid.UUID]*model.QuizSession{},
		answers:  map[uuid.UUID]map[int]*model.Answer{},
	}
}

func (s *fakeSessionStore) answerList(id uuid.UUID) []model.Answer {
	var out []model.Answer
	for _, a := range s.answers[id] {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionIndex < out[j].QuestionIndex })
	return out
}

type fakeSessionRepo struct{ store *fakeSessionStore }

type fakeAnswerRepo struct{ store *fakeSessionStore }

func (r *fakeSessionRepo) Create(_ context.Context, session *model.QuizSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *session
	r.store.sessions[session.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.QuizSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Answers = nil
	return &cp, nil
}

func (r *fakeSessionRepo) FindByIDWithAnswers(ctx context.Context, id uuid.UUID) (*model.QuizSession, error) {
	s, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s.Answers = r.store.answerList(id)
	return s, nil
}

func (r *fakeSessionRepo) FindAllByUser(_ context.Context, userID uuid.UUID, page repository.Page) ([]model.QuizSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []model.QuizSession
	for _, s := range r.store.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if page.Offset >= len(out) {
		return nil, nil
	}
	end := page.Offset + page.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[page.Offset:end], nil
}

func (r *fakeSessionRepo) ApplyState(_ context.Context, id uuid.UUID, upd repository.StateUpdate) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok || s.Status != model.SessionInProgress || s.StateSeq >= upd.Seq {
		return false, nil
	}
	now := upd.Now
	s.StateSeq = upd.Seq
	s.CurrentIndex = upd.CurrentIndex
	s.ElapsedSeconds = upd.ElapsedSeconds
	s.ActiveSince = &now
	return true, nil
}

func timePtr(v interface{}) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

func (r *fakeSessionRepo) Transition(_ context.Context, id uuid.UUID, from []model.SessionStatus, to model.SessionStatus, columns map[string]interface{}) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok {
		return false, nil
	}
	allowed := false
	for _, st := range from {
		if s.Status == st {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}
	s.Status = to
	for k, v := range columns {
		switch k {
		case "elapsed_seconds":
			s.ElapsedSeconds = v.(int)
		case "active_since":
			s.ActiveSince = timePtr(v)
		case "paused_at":
			s.PausedAt = timePtr(v)
		}
	}
	return true, nil
}

func (r *fakeSessionRepo) Finalize(_ context.Context, id uuid.UUID, now time.Time, finalize repository.Finalizer) (*model.QuizSession, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.sessions[id]
	if !ok || s.Status.Terminal() {
		return nil, false, nil
	}
	s.Status = model.SessionSubmitted
	s.SubmittedAt = &now

	locked := *s
	fin, err := finalize(&locked, r.store.answerList(id))
	if err != nil {
		return nil, false, err
	}
	s.Score = &fin.Score
	s.Percentage = &fin.Percentage
	s.ElapsedSeconds = fin.ElapsedSeconds
	s.ActiveSince = nil
	for _, a := range r.store.answers[id] {
		if verdict, ok := fin.Correct[a.ID]; ok {
			v := verdict
			a.IsCorrect = &v
		}
	}
	out := *s
	out.Answers = r.store.answerList(id)
	return &out, true, nil
}

func (r *fakeAnswerRepo) writable(id uuid.UUID, statuses ...model.SessionStatus) bool {
	s, ok := r.store.sessions[id]
	if !ok {
		return false
	}
	for _, st := range statuses {
		if s.Status == st {
			return true
		}
	}
	return false
}

func (r *fakeAnswerRepo) row(a *model.Answer) (*model.Answer, bool) {
	rows, ok := r.store.answers[a.SessionID]
	if !ok {
		rows = map[int]*model.Answer{}
		r.store.answers[a.SessionID] = rows
	}
	if existing, ok := rows[a.QuestionIndex]; ok {
		return existing, true
	}
	r.store.nextAns++
	cp := *a
	cp.ID = r.store.nextAns
	rows[a.QuestionIndex] = &cp
	return &cp, false
}

func (r *fakeAnswerRepo) Upsert(_ context.Context, a *model.Answer) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !r.writable(a.SessionID, model.SessionInProgress) {
		return false, repository.ErrSessionNotWritable
	}
	existing, found := r.row(a)
	if !found {
		return true, nil
	}
	if existing.ClientSeq >= a.ClientSeq {
		return false, nil
	}
	existing.QuestionID = a.QuestionID
	existing.SelectedOption = a.SelectedOption
	existing.ClientSeq = a.ClientSeq
	return true, nil
}

func (r *fakeAnswerRepo) SetBookmark(_ context.Context, a *model.Answer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if !r.writable(a.SessionID, model.SessionInProgress, model.SessionPaused) {
		return repository.ErrSessionNotWritable
	}
	existing, _ := r.row(a)
	existing.Bookmarked = a.Bookmarked
	return nil
}

func (r *fakeAnswerRepo) FindBySession(_ context.Context, id uuid.UUID) ([]model.Answer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.answerList(id), nil
}

func parseID(t interface {
	Helper()
	Fatalf(string, ...interface{})
}, raw string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(raw)
	if err != nil {
		t.Fatalf("bad id %q: %v", raw, err)
	}
	return id
}
