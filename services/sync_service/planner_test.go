package sync_service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"pos-insight/cachestore"
	"pos-insight/model/source_model"
	"pos-insight/pkg/config"
)

// fakeSource 固定fixture的订单源，记录被拉取过的日期
type fakeSource struct {
	ordersByDate map[string][]source_model.JoinedOrder
	failDates    map[string]bool
	fetched      []string
}

func (f *fakeSource) FetchOrders(ctx context.Context, startDate, endDate string) ([]source_model.JoinedOrder, error) {
	f.fetched = append(f.fetched, startDate)
	if f.failDates[startDate] {
		return nil, fmt.Errorf("%w: injected failure", ErrSourceUnavailable)
	}
	return f.ordersByDate[startDate], nil
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{
		LookbackDays:   7,
		FullSyncDays:   90,
		MaxSyncDays:    365,
		AnomalyCeiling: 1000000,
	}
}

func newTestPlanner(t *testing.T, src *fakeSource, cfg config.SyncConfig, today string) (*SyncService, *cachestore.Store) {
	t.Helper()

	store, err := cachestore.Open(config.CacheConfig{
		DBPath:      filepath.Join(t.TempDir(), "planner.db"),
		BusyTimeout: 5000,
		LogLevel:    "silent",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := NewSyncService(store, src, nil, cfg)
	fixed, err := time.Parse("2006-01-02", today)
	if err != nil {
		t.Fatalf("bad today fixture: %v", err)
	}
	svc.now = func() time.Time { return fixed }
	return svc, store
}

func fixtureOrders(storeID string, date string) []source_model.JoinedOrder {
	return []source_model.JoinedOrder{
		order(storeID, "Alpha", true, date+" 09:00:00", "100", `[{"name":"Latte","price":4,"qty":2}]`),
		order(storeID, "Alpha", true, date+" 18:30:00", "50", `[{"name":"Bagel","price":3,"qty":1}]`),
	}
}

// 规格场景：元数据含 01-01..01-05，7天窗口，today=01-08
// 必须恰好同步 {01-06, 01-07, 01-08}，01-01..01-05 不碰
func TestSmartSyncStalenessScenario(t *testing.T) {
	src := &fakeSource{ordersByDate: map[string][]source_model.JoinedOrder{}}
	for d := 1; d <= 8; d++ {
		date := fmt.Sprintf("2024-01-%02d", d)
		src.ordersByDate[date] = fixtureOrders("s1", date)
	}

	svc, store := newTestPlanner(t, src, testSyncConfig(), "2024-01-08")
	if err := store.MarkDatesSynced([]string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
	}); err != nil {
		t.Fatalf("seed metadata: %v", err)
	}

	result, err := svc.SmartSync(context.Background())
	if err != nil {
		t.Fatalf("SmartSync: %v", err)
	}

	want := []string{"2024-01-06", "2024-01-07", "2024-01-08"}
	if !reflect.DeepEqual(result.SyncedDates, want) {
		t.Errorf("synced dates: want %v, got %v", want, result.SyncedDates)
	}
	if !reflect.DeepEqual(src.fetched, want) {
		t.Errorf("source must be queried for exactly the stale dates, got %v", src.fetched)
	}
}

func TestSmartSyncSecondRunOnlyResyncsToday(t *testing.T) {
	today := "2024-01-08"
	src := &fakeSource{ordersByDate: map[string][]source_model.JoinedOrder{
		today: fixtureOrders("s1", today),
	}}
	svc, store := newTestPlanner(t, src, testSyncConfig(), today)

	if _, err := svc.SmartSync(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstRows, err := store.QueryDailyStore(today, today, nil)
	if err != nil {
		t.Fatalf("query after first run: %v", err)
	}

	src.fetched = nil
	result, err := svc.SmartSync(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	// 今天永远重同步；其余日期已标记，不再回源
	if !reflect.DeepEqual(result.SyncedDates, []string{today}) {
		t.Errorf("second run should sync only today, got %v", result.SyncedDates)
	}
	if !reflect.DeepEqual(src.fetched, []string{today}) {
		t.Errorf("second run should fetch only today, got %v", src.fetched)
	}

	// 源数据没变，重同步后的行必须逐字段一致
	secondRows, err := store.QueryDailyStore(today, today, nil)
	if err != nil {
		t.Fatalf("query after second run: %v", err)
	}
	if !reflect.DeepEqual(firstRows, secondRows) {
		t.Errorf("re-sync of unchanged today must be byte-identical:\n%+v\n%+v", firstRows, secondRows)
	}
}

func TestSmartSyncPartialFailureLeavesDatesUnmarked(t *testing.T) {
	today := "2024-01-08"
	src := &fakeSource{
		ordersByDate: map[string][]source_model.JoinedOrder{},
		failDates:    map[string]bool{"2024-01-07": true},
	}
	for d := 1; d <= 8; d++ {
		date := fmt.Sprintf("2024-01-%02d", d)
		src.ordersByDate[date] = fixtureOrders("s1", date)
	}

	svc, store := newTestPlanner(t, src, testSyncConfig(), today)
	if err := store.MarkDatesSynced([]string{
		"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05",
	}); err != nil {
		t.Fatalf("seed metadata: %v", err)
	}

	_, err := svc.SmartSync(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected source error to propagate, got %v", err)
	}

	// 01-06 在失败前完成，保留标记；01-07 失败与其后的 today 均未标记
	synced, _ := store.IsDateSynced("2024-01-06")
	if !synced {
		t.Errorf("01-06 completed before the failure and must stay marked")
	}
	synced, _ = store.IsDateSynced("2024-01-07")
	if synced {
		t.Errorf("failed date must not be marked synced")
	}
	synced, _ = store.IsDateSynced("2024-01-08")
	if synced {
		t.Errorf("date after failure must not be marked synced")
	}

	// 故障恢复后重试补齐
	src.failDates = nil
	result, err := svc.SmartSync(context.Background())
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	want := []string{"2024-01-07", "2024-01-08"}
	if !reflect.DeepEqual(result.SyncedDates, want) {
		t.Errorf("retry should pick up unmarked dates: want %v, got %v", want, result.SyncedDates)
	}
}

func TestFullSyncIgnoresMetadataAndCapsWindow(t *testing.T) {
	today := "2024-01-10"
	cfg := testSyncConfig()
	cfg.FullSyncDays = 5
	cfg.MaxSyncDays = 5

	src := &fakeSource{ordersByDate: map[string][]source_model.JoinedOrder{}}
	svc, store := newTestPlanner(t, src, cfg, today)

	// 已标记的日期照样重聚合
	if err := store.MarkDatesSynced([]string{"2024-01-08"}); err != nil {
		t.Fatalf("seed metadata: %v", err)
	}

	result, err := svc.FullSync(context.Background(), 50)
	if err != nil {
		t.Fatalf("FullSync: %v", err)
	}

	want := []string{"2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10"}
	if !reflect.DeepEqual(result.SyncedDates, want) {
		t.Errorf("window not capped to max days: %v", result.SyncedDates)
	}
	if !reflect.DeepEqual(src.fetched, want) {
		t.Errorf("full sync must refetch marked dates too, got %v", src.fetched)
	}
}

func TestForceSyncDateReplacesStaleRows(t *testing.T) {
	date := "2024-01-05"
	src := &fakeSource{ordersByDate: map[string][]source_model.JoinedOrder{
		date: fixtureOrders("s1", date),
	}}
	svc, store := newTestPlanner(t, src, testSyncConfig(), "2024-01-08")

	// 先放入一行脏数据：含源里已不存在的门店
	stale := BuildDailyStoreMetrics(fixtureOrders("ghost", date), testCeiling, fixedNow)
	if err := store.UpsertDailyStore(stale); err != nil {
		t.Fatalf("seed stale: %v", err)
	}

	result, err := svc.ForceSyncDate(context.Background(), date)
	if err != nil {
		t.Fatalf("ForceSyncDate: %v", err)
	}
	if result.Before == nil || result.After == nil {
		t.Fatalf("missing before/after stats: %+v", result)
	}
	if result.Synced.StoreRecords != 1 || result.Synced.MenuRecords != 2 {
		t.Errorf("unexpected synced counts: %+v", result.Synced)
	}

	rows, err := store.QueryDailyStore(date, date, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 1 || rows[0].StoreID != "s1" {
		t.Errorf("stale ghost rows must be cleared on force sync: %+v", rows)
	}

	synced, _ := store.IsDateSynced(date)
	if !synced {
		t.Errorf("force-synced date should be marked")
	}
}

func TestForceSyncDateSourceFailureKeepsCacheIntact(t *testing.T) {
	date := "2024-01-05"
	src := &fakeSource{
		ordersByDate: map[string][]source_model.JoinedOrder{
			date: fixtureOrders("s1", date),
		},
	}
	svc, store := newTestPlanner(t, src, testSyncConfig(), "2024-01-08")

	// 先正常同步一次，缓存里有这一天的行且已标记
	if _, err := svc.ForceSyncDate(context.Background(), date); err != nil {
		t.Fatalf("initial sync: %v", err)
	}
	seeded, err := store.QueryDailyStore(date, date, nil)
	if err != nil || len(seeded) == 0 {
		t.Fatalf("seed rows missing: rows=%d err=%v", len(seeded), err)
	}

	// 源不可达时强制重同步失败，已有行和同步标记必须原样保留
	src.failDates = map[string]bool{date: true}
	if _, err := svc.ForceSyncDate(context.Background(), date); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected source error, got %v", err)
	}

	rows, err := store.QueryDailyStore(date, date, nil)
	if err != nil {
		t.Fatalf("query after failure: %v", err)
	}
	if !reflect.DeepEqual(rows, seeded) {
		t.Errorf("failed force sync must not touch cached rows:\nbefore %+v\nafter  %+v", seeded, rows)
	}
	menuRows, err := store.QueryDailyStoreMenu(date, date, nil)
	if err != nil || len(menuRows) == 0 {
		t.Errorf("menu rows must survive a failed force sync: rows=%d err=%v", len(menuRows), err)
	}
	synced, err := store.IsDateSynced(date)
	if err != nil || !synced {
		t.Errorf("sync mark must survive a failed force sync: synced=%v err=%v", synced, err)
	}
}

func TestForceSyncDateRejectsBadInput(t *testing.T) {
	src := &fakeSource{}
	svc, _ := newTestPlanner(t, src, testSyncConfig(), "2024-01-08")

	if _, err := svc.ForceSyncDate(context.Background(), "01/05/2024"); err == nil {
		t.Fatalf("expected invalid date error")
	}
	if len(src.fetched) != 0 {
		t.Errorf("no source IO should happen for invalid input")
	}
}
