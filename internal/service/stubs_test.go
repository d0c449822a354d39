package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ms-lokesh/cohort-summit-api/internal/models"
	appErrors "github.com/ms-lokesh/cohort-summit-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func errorCode(err error) string {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		return ""
	}
	return appErr.Code
}

// seasonStoreStub backs seasonRepository and seasonLookup.
type seasonStoreStub struct {
	seasons map[string]*models.Season
	next    int
}

func newSeasonStore(seasons ...models.Season) *seasonStoreStub {
	store := &seasonStoreStub{seasons: map[string]*models.Season{}}
	for i := range seasons {
		s := seasons[i]
		store.seasons[s.ID] = &s
	}
	return store
}

func (s *seasonStoreStub) List(ctx context.Context, filter models.SeasonFilter) ([]models.Season, int, error) {
	var out []models.Season
	for _, season := range s.seasons {
		if filter.IsActive != nil && season.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, *season)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal > out[j].Ordinal })
	return out, len(out), nil
}

func (s *seasonStoreStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Season, error) {
	season, ok := s.seasons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *season
	return &copied, nil
}

func (s *seasonStoreStub) FindActive(ctx context.Context, exec sqlx.ExtContext) (*models.Season, error) {
	for _, season := range s.seasons {
		if season.IsActive {
			copied := *season
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *seasonStoreStub) LockActive(ctx context.Context, exec sqlx.ExtContext, excludeID string) ([]string, error) {
	var ids []string
	for id, season := range s.seasons {
		if season.IsActive && id != excludeID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *seasonStoreStub) ExistsByOrdinal(ctx context.Context, exec sqlx.ExtContext, ordinal int) (bool, error) {
	for _, season := range s.seasons {
		if season.Ordinal == ordinal {
			return true, nil
		}
	}
	return false, nil
}

func (s *seasonStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, season *models.Season) error {
	s.next++
	if season.ID == "" {
		season.ID = fmt.Sprintf("season-%d", s.next)
	}
	copied := *season
	s.seasons[season.ID] = &copied
	return nil
}

func (s *seasonStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, season *models.Season) error {
	if _, ok := s.seasons[season.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *season
	s.seasons[season.ID] = &copied
	return nil
}

func (s *seasonStoreStub) SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error {
	season, ok := s.seasons[id]
	if !ok {
		return sql.ErrNoRows
	}
	season.IsActive = active
	return nil
}

// episodeStoreStub backs episodeRepository and episodeWriter.
type episodeStoreStub struct {
	episodes map[string]*models.Episode
}

func newEpisodeStore() *episodeStoreStub {
	return &episodeStoreStub{episodes: map[string]*models.Episode{}}
}

// seedSeason adds four episodes named <seasonID>-ep<n>.
func (s *episodeStoreStub) seedSeason(seasonID string) {
	for ordinal := 1; ordinal <= models.EpisodesPerSeason; ordinal++ {
		id := fmt.Sprintf("%s-ep%d", seasonID, ordinal)
		s.episodes[id] = &models.Episode{ID: id, SeasonID: seasonID, Ordinal: ordinal}
	}
}

func (s *episodeStoreStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, episodes []models.Episode) error {
	for i := range episodes {
		ep := &episodes[i]
		if ep.ID == "" {
			ep.ID = fmt.Sprintf("%s-ep%d", ep.SeasonID, ep.Ordinal)
		}
		copied := *ep
		s.episodes[ep.ID] = &copied
	}
	return nil
}

func (s *episodeStoreStub) UpdateWindows(ctx context.Context, exec sqlx.ExtContext, episodes []models.Episode) error {
	for _, ep := range episodes {
		stored, ok := s.episodes[ep.ID]
		if !ok {
			return sql.ErrNoRows
		}
		stored.StartDate = ep.StartDate
		stored.EndDate = ep.EndDate
	}
	return nil
}

func (s *episodeStoreStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Episode, error) {
	ep, ok := s.episodes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *ep
	return &copied, nil
}

func (s *episodeStoreStub) FindBySeasonOrdinal(ctx context.Context, exec sqlx.ExtContext, seasonID string, ordinal int) (*models.Episode, error) {
	for _, ep := range s.episodes {
		if ep.SeasonID == seasonID && ep.Ordinal == ordinal {
			copied := *ep
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *episodeStoreStub) ListBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.Episode, error) {
	var out []models.Episode
	for _, ep := range s.episodes {
		if ep.SeasonID == seasonID {
			out = append(out, *ep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

// progressStoreStub backs progressRepository, progressSeeder and completionCounter.
type progressStoreStub struct {
	episodes *episodeStoreStub
	rows     map[string]*models.EpisodeProgress
	updates  int
}

func newProgressStore(episodes *episodeStoreStub) *progressStoreStub {
	return &progressStoreStub{episodes: episodes, rows: map[string]*models.EpisodeProgress{}}
}

func progressKey(studentID, episodeID string) string {
	return studentID + "/" + episodeID
}

func (s *progressStoreStub) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string, status models.EpisodeStatus) (bool, error) {
	key := progressKey(studentID, episodeID)
	if _, ok := s.rows[key]; ok {
		return false, nil
	}
	s.rows[key] = &models.EpisodeProgress{ID: key, StudentID: studentID, EpisodeID: episodeID, Status: status}
	return true, nil
}

func (s *progressStoreStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string) (*models.EpisodeProgress, error) {
	row, ok := s.rows[progressKey(studentID, episodeID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *row
	return &copied, nil
}

func (s *progressStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, progress *models.EpisodeProgress) error {
	copied := *progress
	s.rows[progressKey(progress.StudentID, progress.EpisodeID)] = &copied
	s.updates++
	return nil
}

func (s *progressStoreStub) Unlock(ctx context.Context, exec sqlx.ExtContext, studentID, episodeID string) (bool, error) {
	row, ok := s.rows[progressKey(studentID, episodeID)]
	if !ok || row.Status != models.EpisodeStatusLocked {
		return false, nil
	}
	row.Status = models.EpisodeStatusUnlocked
	return true, nil
}

func (s *progressStoreStub) ListBySeasonStudent(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) ([]models.EpisodeProgressDetail, error) {
	var out []models.EpisodeProgressDetail
	for _, row := range s.rows {
		ep, ok := s.episodes.episodes[row.EpisodeID]
		if !ok || ep.SeasonID != seasonID || row.StudentID != studentID {
			continue
		}
		out = append(out, models.EpisodeProgressDetail{EpisodeProgress: *row, SeasonID: seasonID, EpisodeOrdinal: ep.Ordinal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EpisodeOrdinal < out[j].EpisodeOrdinal })
	return out, nil
}

func (s *progressStoreStub) CountCompleted(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (int, error) {
	rows, _ := s.ListBySeasonStudent(ctx, exec, seasonID, studentID)
	count := 0
	for _, row := range rows {
		if row.Status == models.EpisodeStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (s *progressStoreStub) Enrolled(ctx context.Context, exec sqlx.ExtContext, seasonID, studentID string) (bool, error) {
	rows, _ := s.ListBySeasonStudent(ctx, exec, seasonID, studentID)
	return len(rows) > 0, nil
}

// completeAll marks every episode of the season completed for the student.
func (s *progressStoreStub) completeAll(seasonID, studentID string) {
	for _, ep := range s.episodes.episodes {
		if ep.SeasonID != seasonID {
			continue
		}
		s.rows[progressKey(studentID, ep.ID)] = &models.EpisodeProgress{
			ID:        progressKey(studentID, ep.ID),
			StudentID: studentID,
			EpisodeID: ep.ID,
			Status:    models.EpisodeStatusCompleted,
		}
	}
}

type studentStoreStub struct {
	students map[string]models.Student
}

func newStudentStore(students ...models.Student) *studentStoreStub {
	store := &studentStoreStub{students: map[string]models.Student{}}
	for _, s := range students {
		store.students[s.ID] = s
	}
	return store
}

func (s *studentStoreStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Student, error) {
	student, ok := s.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

func (s *studentStoreStub) ListActive(ctx context.Context, exec sqlx.ExtContext) ([]models.Student, error) {
	var out []models.Student
	for _, student := range s.students {
		if student.Active {
			out = append(out, student)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// scoreStoreStub backs scoreRepository and completedScoreLister.
type scoreStoreStub struct {
	scores  map[string]*models.SeasonScore
	updates int
}

func newScoreStore() *scoreStoreStub {
	return &scoreStoreStub{scores: map[string]*models.SeasonScore{}}
}

func scoreKey(studentID, seasonID string) string {
	return studentID + "/" + seasonID
}

func (s *scoreStoreStub) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) error {
	key := scoreKey(studentID, seasonID)
	if _, ok := s.scores[key]; !ok {
		s.scores[key] = &models.SeasonScore{ID: key, StudentID: studentID, SeasonID: seasonID}
	}
	return nil
}

func (s *scoreStoreStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.SeasonScore, error) {
	score, ok := s.scores[scoreKey(studentID, seasonID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *score
	return &copied, nil
}

func (s *scoreStoreStub) FindByStudentSeason(ctx context.Context, studentID, seasonID string) (*models.SeasonScore, error) {
	return s.LockForUpdate(ctx, nil, studentID, seasonID)
}

func (s *scoreStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, score *models.SeasonScore) error {
	copied := *score
	s.scores[scoreKey(score.StudentID, score.SeasonID)] = &copied
	s.updates++
	return nil
}

func (s *scoreStoreStub) ListCompletedBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) ([]models.SeasonScore, error) {
	var out []models.SeasonScore
	for _, score := range s.scores {
		if score.SeasonID == seasonID && score.SeasonCompleted {
			out = append(out, *score)
		}
	}
	models.SortStandings(out)
	return out, nil
}

// approvalStub returns fixed counts per pillar.
type approvalStub struct {
	approved map[models.Pillar]int
	distinct map[models.Pillar]int
	windows  []models.DateWindow
}

func (s *approvalStub) CountApproved(ctx context.Context, exec sqlx.ExtContext, studentID string, pillar models.Pillar, window models.DateWindow) (int, error) {
	s.windows = append(s.windows, window)
	return s.approved[pillar], nil
}

func (s *approvalStub) CountDistinctApprovedTypes(ctx context.Context, exec sqlx.ExtContext, studentID string, pillar models.Pillar, window models.DateWindow) (int, error) {
	s.windows = append(s.windows, window)
	return s.distinct[pillar], nil
}

// streakStoreStub backs streakRepository and streakReader.
type streakStoreStub struct {
	mu      sync.Mutex
	records map[string]*models.StreakRecord
	updates int
}

func newStreakStore() *streakStoreStub {
	return &streakStoreStub{records: map[string]*models.StreakRecord{}}
}

func (s *streakStoreStub) Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[scoreKey(studentID, seasonID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (s *streakStoreStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.StreakRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := scoreKey(studentID, seasonID)
	record, ok := s.records[key]
	if !ok {
		record = &models.StreakRecord{ID: key, StudentID: studentID, SeasonID: seasonID}
		s.records[key] = record
	}
	copied := *record
	return &copied, nil
}

func (s *streakStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, record *models.StreakRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.records[scoreKey(record.StudentID, record.SeasonID)] = &copied
	s.updates++
	return nil
}

type outcomeStoreStub struct {
	outcomes map[string]*models.SeasonOutcome
}

func newOutcomeStore() *outcomeStoreStub {
	return &outcomeStoreStub{outcomes: map[string]*models.SeasonOutcome{}}
}

func (s *outcomeStoreStub) Upsert(ctx context.Context, exec sqlx.ExtContext, outcome *models.SeasonOutcome) error {
	copied := *outcome
	s.outcomes[scoreKey(outcome.StudentID, outcome.SeasonID)] = &copied
	return nil
}

func (s *outcomeStoreStub) Find(ctx context.Context, exec sqlx.ExtContext, studentID, seasonID string) (*models.SeasonOutcome, error) {
	outcome, ok := s.outcomes[scoreKey(studentID, seasonID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *outcome
	return &copied, nil
}

type legacyStoreStub struct {
	scores    map[string]*models.LegacyScore
	updateErr error
}

func newLegacyStore() *legacyStoreStub {
	return &legacyStoreStub{scores: map[string]*models.LegacyScore{}}
}

func (s *legacyStoreStub) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, ok := s.scores[studentID]; !ok {
		s.scores[studentID] = &models.LegacyScore{ID: "legacy-" + studentID, StudentID: studentID}
	}
	return nil
}

func (s *legacyStoreStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.LegacyScore, error) {
	score, ok := s.scores[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *score
	return &copied, nil
}

func (s *legacyStoreStub) FindByStudent(ctx context.Context, studentID string) (*models.LegacyScore, error) {
	return s.LockForUpdate(ctx, nil, studentID)
}

func (s *legacyStoreStub) Update(ctx context.Context, exec sqlx.ExtContext, legacy *models.LegacyScore) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	current, ok := s.scores[legacy.StudentID]
	if ok && legacy.TotalPoints < current.TotalPoints {
		return errors.New("legacy total would decrease")
	}
	copied := *legacy
	s.scores[legacy.StudentID] = &copied
	return nil
}

// walletStoreStub keeps wallets and their append-only ledger.
type walletStoreStub struct {
	wallets   map[string]*models.RewardWallet
	txns      []models.RewardTransaction
	insertErr error
}

func newWalletStore() *walletStoreStub {
	return &walletStoreStub{wallets: map[string]*models.RewardWallet{}}
}

func (s *walletStoreStub) seed(studentID string, earned, spent int) {
	s.wallets[studentID] = &models.RewardWallet{
		ID:             "wallet-" + studentID,
		StudentID:      studentID,
		Available:      earned - spent,
		LifetimeEarned: earned,
		LifetimeSpent:  spent,
	}
}

func (s *walletStoreStub) Ensure(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	if _, ok := s.wallets[studentID]; !ok {
		s.seed(studentID, 0, 0)
	}
	return nil
}

func (s *walletStoreStub) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, studentID string) (*models.RewardWallet, error) {
	wallet, ok := s.wallets[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *wallet
	return &copied, nil
}

func (s *walletStoreStub) FindByStudent(ctx context.Context, studentID string) (*models.RewardWallet, error) {
	return s.LockForUpdate(ctx, nil, studentID)
}

func (s *walletStoreStub) ApplyBalance(ctx context.Context, exec sqlx.ExtContext, wallet *models.RewardWallet) error {
	copied := *wallet
	s.wallets[wallet.StudentID] = &copied
	return nil
}

func (s *walletStoreStub) InsertTransaction(ctx context.Context, exec sqlx.ExtContext, txn *models.RewardTransaction) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if txn.ID == "" {
		txn.ID = fmt.Sprintf("txn-%d", len(s.txns)+1)
	}
	s.txns = append(s.txns, *txn)
	return nil
}

func (s *walletStoreStub) ListTransactions(ctx context.Context, walletID string, page models.PageRequest) ([]models.RewardTransaction, int, error) {
	var out []models.RewardTransaction
	for _, txn := range s.txns {
		if txn.WalletID == walletID {
			out = append(out, txn)
		}
	}
	total := len(out)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s *walletStoreStub) LedgerTotals(ctx context.Context, walletID string) (*models.LedgerTotals, error) {
	totals := &models.LedgerTotals{}
	for _, txn := range s.txns {
		if txn.WalletID != walletID {
			continue
		}
		if txn.Type == models.TransactionEarn {
			totals.Earned += txn.Amount
		} else {
			totals.Spent += txn.Amount
		}
	}
	return totals, nil
}

// leaderboardStoreStub keeps the last written podium and brackets per season.
type leaderboardStoreStub struct {
	entries   map[string][]models.LeaderboardEntry
	brackets  map[string][]models.PercentileBracket
	podiumHit int
	insertErr error
	calls     []string
}

func newLeaderboardStore() *leaderboardStoreStub {
	return &leaderboardStoreStub{entries: map[string][]models.LeaderboardEntry{}, brackets: map[string][]models.PercentileBracket{}}
}

func (s *leaderboardStoreStub) LockSeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) error {
	s.calls = append(s.calls, "lock:"+seasonID)
	return nil
}

func (s *leaderboardStoreStub) DeleteBySeason(ctx context.Context, exec sqlx.ExtContext, seasonID string) error {
	s.calls = append(s.calls, "delete:"+seasonID)
	delete(s.entries, seasonID)
	delete(s.brackets, seasonID)
	return nil
}

func (s *leaderboardStoreStub) InsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.LeaderboardEntry) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, e := range entries {
		s.entries[e.SeasonID] = append(s.entries[e.SeasonID], e)
	}
	return nil
}

func (s *leaderboardStoreStub) InsertBrackets(ctx context.Context, exec sqlx.ExtContext, brackets []models.PercentileBracket) error {
	for _, b := range brackets {
		s.brackets[b.SeasonID] = append(s.brackets[b.SeasonID], b)
	}
	return nil
}

func (s *leaderboardStoreStub) ListPodium(ctx context.Context, seasonID string) ([]models.LeaderboardEntry, error) {
	s.podiumHit++
	return s.entries[seasonID], nil
}

func (s *leaderboardStoreStub) FindEntry(ctx context.Context, seasonID, studentID string) (*models.LeaderboardEntry, error) {
	for _, e := range s.entries[seasonID] {
		if e.StudentID == studentID {
			copied := e
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *leaderboardStoreStub) FindBracket(ctx context.Context, seasonID, studentID string) (*models.PercentileBracket, error) {
	for _, b := range s.brackets[seasonID] {
		if b.StudentID == studentID {
			copied := b
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *leaderboardStoreStub) Standings(ctx context.Context, seasonID string) ([]models.Standing, error) {
	var out []models.Standing
	for _, e := range s.entries[seasonID] {
		out = append(out, models.Standing{Position: e.Rank, StudentID: e.StudentID, StudentName: "Student " + e.StudentID, Score: e.Score, Label: e.RankTitle})
	}
	for _, b := range s.brackets[seasonID] {
		out = append(out, models.Standing{Position: b.Position, StudentID: b.StudentID, StudentName: "Student " + b.StudentID, Score: b.Score, Label: string(b.Bucket)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// memoryCacheRepo is a CacheRepository kept in a map of JSON-free values.
type memoryCacheRepo struct {
	mu      sync.Mutex
	values  map[string][]models.LeaderboardEntry
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]models.LeaderboardEntry{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out, ok := dest.(*[]models.LeaderboardEntry)
	if !ok {
		return fmt.Errorf("unexpected destination %T", dest)
	}
	*out = append([]models.LeaderboardEntry(nil), value...)
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries, ok := value.([]models.LeaderboardEntry)
	if !ok {
		return fmt.Errorf("unexpected value %T", value)
	}
	m.values[key] = append([]models.LeaderboardEntry(nil), entries...)
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

// titleStoreStub backs titleRepository.
type titleStoreStub struct {
	titles       map[string]models.Title
	ownership    map[string]*models.StudentTitle
	ownershipErr error
}

func newTitleStore(titles ...models.Title) *titleStoreStub {
	store := &titleStoreStub{titles: map[string]models.Title{}, ownership: map[string]*models.StudentTitle{}}
	for _, title := range titles {
		store.titles[title.ID] = title
	}
	return store
}

func (s *titleStoreStub) List(ctx context.Context) ([]models.Title, error) {
	var out []models.Title
	for _, title := range s.titles {
		out = append(out, title)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cost < out[j].Cost })
	return out, nil
}

func (s *titleStoreStub) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Title, error) {
	title, ok := s.titles[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &title, nil
}

func (s *titleStoreStub) ExistsByName(ctx context.Context, name string) (bool, error) {
	for _, title := range s.titles {
		if title.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *titleStoreStub) Create(ctx context.Context, title *models.Title) error {
	if title.ID == "" {
		title.ID = fmt.Sprintf("title-%d", len(s.titles)+1)
	}
	s.titles[title.ID] = *title
	return nil
}

func (s *titleStoreStub) FindOwnership(ctx context.Context, exec sqlx.ExtContext, studentID, titleID string) (*models.StudentTitle, error) {
	owned, ok := s.ownership[scoreKey(studentID, titleID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *owned
	return &copied, nil
}

func (s *titleStoreStub) CreateOwnership(ctx context.Context, exec sqlx.ExtContext, owned *models.StudentTitle) error {
	if s.ownershipErr != nil {
		return s.ownershipErr
	}
	if owned.ID == "" {
		owned.ID = "own-" + owned.TitleID
	}
	copied := *owned
	s.ownership[scoreKey(owned.StudentID, owned.TitleID)] = &copied
	return nil
}

func (s *titleStoreStub) UnequipAll(ctx context.Context, exec sqlx.ExtContext, studentID string) error {
	for _, owned := range s.ownership {
		if owned.StudentID == studentID {
			owned.IsEquipped = false
		}
	}
	return nil
}

func (s *titleStoreStub) Equip(ctx context.Context, exec sqlx.ExtContext, ownershipID string) error {
	for _, owned := range s.ownership {
		if owned.ID == ownershipID {
			owned.IsEquipped = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (s *titleStoreStub) ListOwned(ctx context.Context, studentID string) ([]models.OwnedTitle, error) {
	var out []models.OwnedTitle
	for _, owned := range s.ownership {
		if owned.StudentID != studentID {
			continue
		}
		title := s.titles[owned.TitleID]
		out = append(out, models.OwnedTitle{StudentTitle: *owned, Name: title.Name, Rarity: title.Rarity})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TitleID < out[j].TitleID })
	return out, nil
}

func (s *titleStoreStub) FindEquipped(ctx context.Context, studentID string) (*models.OwnedTitle, error) {
	owned, _ := s.ListOwned(ctx, studentID)
	for _, o := range owned {
		if o.IsEquipped {
			copied := o
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *titleStoreStub) equippedCount(studentID string) int {
	count := 0
	for _, owned := range s.ownership {
		if owned.StudentID == studentID && owned.IsEquipped {
			count++
		}
	}
	return count
}
