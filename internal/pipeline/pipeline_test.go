package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/moderation"
	"github.com/Johnhpure/product-audit/internal/ocr"
	"github.com/Johnhpure/product-audit/internal/runstate"
	"github.com/Johnhpure/product-audit/internal/scope"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCatalog struct {
	pages      [][]domain.Product
	fetchErr   error
	approved   []int64
	license    string
	licenseErr error
}

func (f *fakeCatalog) FetchPending(ctx context.Context, page int) ([]domain.Product, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func (f *fakeCatalog) Approve(ctx context.Context, productID int64) error {
	f.approved = append(f.approved, productID)
	return nil
}

func (f *fakeCatalog) ShopLicense(ctx context.Context, shopID int64) (string, error) {
	return f.license, f.licenseErr
}

type fakeModerator struct {
	textUnsafe   bool
	textErr      error
	unsafeImages map[string]string
	textCalls    int
	imageCalls   []string
}

func safeVerdict() moderation.Verdict {
	return moderation.Verdict{IsSafe: true, Raw: `{"Code":200}`}
}

func (f *fakeModerator) TextModeration(ctx context.Context, content string) (moderation.Verdict, error) {
	f.textCalls++
	if f.textErr != nil {
		return moderation.Verdict{}, f.textErr
	}
	if f.textUnsafe {
		return moderation.Verdict{IsSafe: false, Raw: `{"Code":200,"Data":{"Reason":"违规"}}`}, nil
	}
	return safeVerdict(), nil
}

func (f *fakeModerator) ImageModeration(ctx context.Context, imageURL string) (moderation.Verdict, error) {
	f.imageCalls = append(f.imageCalls, imageURL)
	if label, ok := f.unsafeImages[imageURL]; ok {
		return moderation.Verdict{
			IsSafe: false,
			Response: moderation.Response{
				Code: 200,
				Data: &moderation.ResponseData{Result: []moderation.RiskResult{{Label: label}}},
			},
			Raw: fmt.Sprintf(`{"Code":200,"Data":{"Result":[{"Label":%q}]}}`, label),
		}, nil
	}
	return safeVerdict(), nil
}

type fakeLicenseReader struct {
	scope string
	err   error
	calls int
}

func (f *fakeLicenseReader) RecognizeBusinessLicense(ctx context.Context, imageURL string) (ocr.Recognition, error) {
	f.calls++
	if f.err != nil {
		return ocr.Recognition{}, f.err
	}
	return ocr.Recognition{BusinessScope: f.scope, Raw: `{"Data":{}}`}, nil
}

type fakeScopeAnalyzer struct {
	allowed bool
	reason  string
	err     error
	calls   int
}

func (f *fakeScopeAnalyzer) AnalyzeBusinessScope(ctx context.Context, category, businessScope string) (scope.Analysis, error) {
	f.calls++
	if f.err != nil {
		return scope.Analysis{}, f.err
	}
	return scope.Analysis{Allowed: f.allowed, Reason: f.reason, Raw: "{}"}, nil
}

type fakeGateway struct {
	exists    bool
	existsErr error
	createErr error
	checks    []string
	records   []domain.AuditRecord
}

func (f *fakeGateway) CheckProductExists(ctx context.Context, productID string) (bool, error) {
	f.checks = append(f.checks, productID)
	return f.exists, f.existsErr
}

func (f *fakeGateway) CreateRecord(ctx context.Context, record domain.AuditRecord) error {
	f.records = append(f.records, record)
	return f.createErr
}

func pendingProduct(id int64) domain.Product {
	return domain.Product{
		ID:           id,
		Title:        "牛皮钱包",
		Description:  "头层牛皮手工钱包",
		MainImage:    fmt.Sprintf("https://img.example.com/%d-main.jpg", id),
		SlideImages:  []string{fmt.Sprintf("https://img.example.com/%d-1.jpg", id)},
		CategoryName: "箱包",
		ShopID:       7,
	}
}

func testDeps() (*fakeCatalog, *fakeModerator, *fakeLicenseReader, *fakeScopeAnalyzer, *fakeGateway) {
	catalog := &fakeCatalog{license: "https://img.example.com/license.jpg"}
	moderator := &fakeModerator{}
	license := &fakeLicenseReader{scope: "箱包、皮具的批发零售"}
	analyzer := &fakeScopeAnalyzer{allowed: true}
	gw := &fakeGateway{}
	return catalog, moderator, license, analyzer, gw
}

func runPipeline(t *testing.T, deps Deps, prior runstate.State) *Pipeline {
	t.Helper()

	cfg := Config{
		ProductDelay: time.Millisecond,
		ImageDelay:   time.Millisecond,
	}

	p := New(deps, cfg, nil, prior, zap.NewNop().Sugar())
	require.NoError(t, p.Start())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}

	return p
}

func TestRunEndsWhenQueueExhausted(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = nil

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, domain.RunIdle, p.Status())
	assert.Equal(t, 0, p.State().Stats.Total)
	assert.Zero(t, moderator.textCalls)
}

func TestRunErrorOnFetchFailure(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.fetchErr = errors.New("catalog down")

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, domain.RunError, p.Status())
}

func TestCleanProductIsApproved(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, domain.RunIdle, p.Status())
	assert.Equal(t, []int64{101}, catalog.approved)
	assert.Empty(t, gw.records)

	stats := p.State().Stats
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 0, stats.Rejected)

	history := p.History()
	require.Len(t, history, 1)
	assert.Equal(t, "101", history[0].ProductID)
	assert.Equal(t, domain.VerdictPassed, history[0].Status)
}

func TestTextViolationShortCircuits(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	moderator.textUnsafe = true

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	// Later stages never run once the text gate fails.
	assert.Equal(t, 1, moderator.textCalls)
	assert.Empty(t, moderator.imageCalls)
	assert.Zero(t, license.calls)
	assert.Zero(t, analyzer.calls)
	assert.Empty(t, catalog.approved)

	require.Len(t, gw.records, 1)
	record := gw.records[0]
	assert.Equal(t, "101", record.ProductID)
	assert.Equal(t, domain.StageText, record.AuditStage)
	assert.Equal(t, domain.VerdictRejected, record.Verdict)
	assert.Equal(t, "文本违规", record.RejectionReason)
	assert.Equal(t, domain.ManualPending, record.ManualStatus)

	assert.Equal(t, 1, p.State().Stats.Rejected)
}

func TestTextModerationErrorRejectsWithAPIError(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	moderator.textErr = errors.New("signature mismatch")

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, domain.RunIdle, p.Status())
	require.Len(t, gw.records, 1)
	assert.Equal(t, "文本违规", gw.records[0].RejectionReason)
	assert.Equal(t, "signature mismatch", gw.records[0].APIError)
}

func TestImageViolationStopsRemainingImages(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()

	product := pendingProduct(101)
	product.SlideImages = []string{
		"https://img.example.com/101-1.jpg",
		"https://img.example.com/101-2.jpg",
		"https://img.example.com/101-3.jpg",
	}
	catalog.pages = [][]domain.Product{{product}}
	moderator.unsafeImages = map[string]string{
		"https://img.example.com/101-2.jpg": "contraband_drug",
	}

	_ = runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	// Main image, slide 1, slide 2; slide 3 is never checked.
	require.Len(t, moderator.imageCalls, 3)
	assert.Equal(t, "https://img.example.com/101-main.jpg", moderator.imageCalls[0])
	assert.Equal(t, "https://img.example.com/101-2.jpg", moderator.imageCalls[2])

	require.Len(t, gw.records, 1)
	assert.Equal(t, domain.StageImage, gw.records[0].AuditStage)
	assert.Equal(t, "画面疑似毒品、药品", gw.records[0].RejectionReason)
	assert.Zero(t, license.calls)
}

func TestScopeMismatchRejects(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	license.scope = "食品,日用百货"
	analyzer.allowed = false
	analyzer.reason = "经营范围不含箱包"

	_ = runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	require.Len(t, gw.records, 1)
	assert.Equal(t, domain.StageBusinessScope, gw.records[0].AuditStage)
	assert.Equal(t, "经营范围不符: 经营范围不含箱包", gw.records[0].RejectionReason)
	assert.Empty(t, catalog.approved)
}

func TestScopeNotExtractedRejectsProduct(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	license.err = ocr.ErrScopeNotExtracted

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	// Unreadable license is a per-product rejection, the run continues.
	assert.Equal(t, domain.RunIdle, p.Status())
	require.Len(t, gw.records, 1)
	assert.Equal(t, domain.StageBusinessScope, gw.records[0].AuditStage)
	assert.Contains(t, gw.records[0].RejectionReason, "营业执照识别失败")
	assert.Zero(t, analyzer.calls)
}

func TestUnclassifiedOCRFailureHaltsRun(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101), pendingProduct(102)}}
	license.err = errors.New("quota exceeded")

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, domain.RunError, p.Status())
	assert.Equal(t, domain.VerdictManualReview, p.State().Verdict)
	// The second product is never reached.
	assert.Equal(t, 1, moderator.textCalls)
	assert.Empty(t, gw.records)
}

func TestMissingLicenseSkipsScopeStage(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	catalog.license = ""

	_ = runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Zero(t, license.calls)
	assert.Zero(t, analyzer.calls)
	assert.Equal(t, []int64{101}, catalog.approved)
}

func TestMissingCategorySkipsScopeStage(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	product := pendingProduct(101)
	product.CategoryName = ""
	catalog.pages = [][]domain.Product{{product}}

	_ = runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Zero(t, license.calls)
	assert.Equal(t, []int64{101}, catalog.approved)
}

func TestExistingRecordSkipsModeration(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	gw.exists = true

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, []string{"101"}, gw.checks)
	assert.Zero(t, moderator.textCalls)
	assert.Empty(t, gw.records)
	assert.Empty(t, catalog.approved)

	history := p.History()
	require.Len(t, history, 1)
	assert.Equal(t, domain.VerdictPassed, history[0].Status)
	assert.Equal(t, "已存在审核记录，跳过", history[0].Reason)
	assert.Equal(t, 1, p.State().Stats.Passed)
}

func TestDedupCheckFailureContinues(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}
	gw.existsErr = errors.New("backend down")

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	// A failed lookup is treated as not found; the product is still audited.
	assert.Equal(t, 1, moderator.textCalls)
	assert.Equal(t, []int64{101}, catalog.approved)
	assert.Equal(t, domain.RunIdle, p.Status())
}

func TestRestoredHistorySkipsRejectedProducts(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101), pendingProduct(102)}}

	prior := runstate.State{
		History: []domain.HistoryEntry{
			{ProductID: "101", Status: domain.VerdictRejected, Reason: "文本违规"},
		},
	}

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, prior)

	// 101 is skipped before any external call; only 102 is audited.
	assert.Equal(t, []string{"102"}, gw.checks)
	assert.Equal(t, 1, moderator.textCalls)
	assert.Equal(t, []int64{102}, catalog.approved)
	assert.Equal(t, domain.RunIdle, p.Status())
}

func TestRecordApprovedPersistsPassedVerdicts(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101)}}

	cfg := Config{
		ProductDelay:   time.Millisecond,
		ImageDelay:     time.Millisecond,
		RecordApproved: true,
		UserID:         "u-1",
		Username:       "auditor",
	}

	p := New(Deps{catalog, moderator, license, analyzer, gw}, cfg, nil, runstate.State{}, zap.NewNop().Sugar())
	require.NoError(t, p.Start())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}

	require.Len(t, gw.records, 1)
	assert.Equal(t, domain.VerdictPassed, gw.records[0].Verdict)
	assert.Equal(t, "auditor", gw.records[0].Username)
	assert.Equal(t, []int64{101}, catalog.approved)
}

func TestStartIsIdempotent(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = nil

	p := New(Deps{catalog, moderator, license, analyzer, gw}, Config{
		ProductDelay: time.Millisecond,
		ImageDelay:   time.Millisecond,
	}, nil, runstate.State{}, zap.NewNop().Sugar())

	require.NoError(t, p.Start())
	require.NoError(t, p.Start())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestRejectionRecordFailureDoesNotStopRun(t *testing.T) {
	catalog, moderator, license, analyzer, gw := testDeps()
	catalog.pages = [][]domain.Product{{pendingProduct(101), pendingProduct(102)}}
	moderator.textUnsafe = true
	gw.createErr = errors.New("backend down")

	p := runPipeline(t, Deps{catalog, moderator, license, analyzer, gw}, runstate.State{})

	assert.Equal(t, domain.RunIdle, p.Status())
	assert.Len(t, gw.records, 2)
	assert.Equal(t, 2, p.State().Stats.Rejected)
}
