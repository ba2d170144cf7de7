// Package pipeline drives the moderation decision sequence for pending
// products: dedup check, text moderation, per-image moderation, then
// business-scope compliance, fail-fast at the first failing gate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Johnhpure/product-audit/internal/domain"
	"github.com/Johnhpure/product-audit/internal/moderation"
	"github.com/Johnhpure/product-audit/internal/ocr"
	"github.com/Johnhpure/product-audit/internal/runstate"
	"go.uber.org/zap"
)

const (
	textRejectionReason  = "文本违规"
	imageRejectionReason = "图片违规"
	dedupSkipReason      = "已存在审核记录，跳过"
)

type Config struct {
	ProductDelay   time.Duration
	ImageDelay     time.Duration
	HistoryLimit   int
	RecordApproved bool
	UserID         string
	Username       string
}

type Deps struct {
	Catalog   CatalogSource
	Moderator Moderator
	License   LicenseReader
	Scope     ScopeAnalyzer
	Gateway   RecordGateway
}

// Pipeline processes products strictly sequentially: one product fully
// resolved, side effects included, before the next begins. Stop is
// cooperative; it never aborts an in-flight vendor call.
type Pipeline struct {
	cfg    Config
	deps   Deps
	store  *runstate.Store
	logger *zap.SugaredLogger

	ctx       context.Context
	cancel    context.CancelFunc
	running   atomic.Bool
	suspended atomic.Bool

	mu      sync.RWMutex
	status  domain.RunStatus
	state   domain.AuditState
	done    chan struct{}
	history *History
}

func New(deps Deps, cfg Config, store *runstate.Store, prior runstate.State, logger *zap.SugaredLogger) *Pipeline {
	if cfg.ProductDelay == 0 {
		cfg.ProductDelay = time.Second
	}
	if cfg.ImageDelay == 0 {
		cfg.ImageDelay = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	history := NewHistory(cfg.HistoryLimit)
	history.Restore(prior.History)

	return &Pipeline{
		cfg:     cfg,
		deps:    deps,
		store:   store,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		status:  domain.RunIdle,
		history: history,
	}
}

// Start launches the run loop. It is idempotent: starting a running pipeline
// is a no-op.
func (p *Pipeline) Start() error {
	if !p.running.CompareAndSwap(false, true) {
		return nil
	}

	p.setStatus(domain.RunRunning)
	p.persist(true)

	p.mu.Lock()
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	p.logger.Info("audit pipeline started")

	go p.run(done)

	return nil
}

// Stop flips the cooperative flag. The current vendor call finishes; no new
// stage or product begins afterwards.
func (p *Pipeline) Stop() {
	if !p.running.Swap(false) {
		return
	}

	p.setStatus(domain.RunStopped)
	p.persist(false)
	p.logger.Info("audit pipeline stop requested")
}

// Shutdown cancels in-flight calls as well; used on process exit only.
func (p *Pipeline) Shutdown() {
	p.running.Store(false)
	p.cancel()
}

// Suspend is the process-exit variant of Stop: it halts the loop and cancels
// in-flight calls but keeps the persisted running flag set, so the next
// process start resumes the interrupted run.
func (p *Pipeline) Suspend() {
	if p.running.Load() {
		p.suspended.Store(true)
		p.persist(true)
	}
	p.running.Store(false)
	p.cancel()
}

// Done returns a channel closed when the current run loop exits, or nil if
// no run was started.
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.done
}

func (p *Pipeline) Status() domain.RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// State returns a copy of the live audit snapshot.
func (p *Pipeline) State() domain.AuditState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Pipeline) History() []domain.HistoryEntry {
	return p.history.Entries()
}

type outcome int

const (
	outcomeContinue outcome = iota
	outcomeStopped
	outcomeHalt
)

type decision struct {
	rejected bool
	stage    domain.AuditStage
	reason   string
	apiError string
}

func (p *Pipeline) run(done chan struct{}) {
	defer close(done)

	page := 0
	for p.running.Load() {
		products, err := p.deps.Catalog.FetchPending(p.ctx, page)
		if err != nil {
			p.logger.Errorw("fetch pending products failed", "page", page, "error", err)
			p.finish(domain.RunError)
			return
		}

		p.logger.Infow("fetched pending products", "page", page, "count", len(products))

		// Queue exhaustion ends the run; it is not an error and there is
		// no wait-and-poll loop (see DESIGN.md).
		if len(products) == 0 {
			p.logger.Info("pending queue exhausted, run complete")
			p.finish(domain.RunIdle)
			return
		}

		p.updateState(func(s *domain.AuditState) {
			s.Stats.Total += len(products)
		})

		for _, product := range products {
			if !p.running.Load() {
				break
			}

			switch p.auditProduct(p.ctx, product) {
			case outcomeHalt:
				p.finish(domain.RunError)
				return
			case outcomeStopped:
				p.finish(domain.RunStopped)
				return
			}

			p.sleep(p.cfg.ProductDelay)
		}

		page++
	}

	p.finish(domain.RunStopped)
}

func (p *Pipeline) auditProduct(ctx context.Context, product domain.Product) outcome {
	id := strconv.FormatInt(product.ID, 10)

	// In-session fast path: a product rejected earlier this run is not
	// reprocessed.
	if p.history.IsRejected(id) {
		p.logger.Infow("product already rejected this session, skipping", "product_id", id)
		return outcomeContinue
	}

	p.resetState(product)

	// Best-effort dedup against the backend: a failed lookup is logged and
	// treated as not found, availability over strict duplicate prevention.
	exists, err := p.deps.Gateway.CheckProductExists(ctx, id)
	if err != nil {
		p.logger.Warnw("dedup check failed, continuing", "product_id", id, "error", err)
	}
	if exists {
		p.logger.Infow("audit record already exists, skipping", "product_id", id)
		p.setVerdict(domain.VerdictPassed)
		p.appendHistory(product, domain.VerdictPassed, dedupSkipReason)
		p.updateState(func(s *domain.AuditState) {
			s.Stats.Processed++
			s.Stats.Passed++
		})
		return outcomeContinue
	}

	started := time.Now()

	var dec decision

	p.auditText(ctx, product, &dec)

	if !dec.rejected {
		if out := p.auditImages(ctx, product, &dec); out != outcomeContinue {
			return out
		}
	}

	if !dec.rejected {
		if out := p.auditScope(ctx, product, &dec); out != outcomeContinue {
			return out
		}
	}

	elapsed := time.Since(started).Milliseconds()

	if dec.rejected {
		p.setVerdict(domain.VerdictRejected)
		p.appendHistory(product, domain.VerdictRejected, dec.reason)
		p.updateState(func(s *domain.AuditState) {
			s.Stats.Processed++
			s.Stats.Rejected++
		})
		p.logger.Infow("product rejected",
			"product_id", id, "stage", dec.stage, "reason", dec.reason)

		record := p.buildRecord(product, dec, elapsed, domain.VerdictRejected)
		if err := p.deps.Gateway.CreateRecord(ctx, record); err != nil {
			// The verdict already happened; the record is a durable log,
			// not the transaction boundary.
			p.logger.Errorw("persist audit record failed", "product_id", id, "error", err)
		}

		return outcomeContinue
	}

	p.setVerdict(domain.VerdictPassed)
	p.appendHistory(product, domain.VerdictPassed, "")
	p.updateState(func(s *domain.AuditState) {
		s.Stats.Processed++
		s.Stats.Passed++
	})
	p.logger.Infow("product passed", "product_id", id)

	if p.cfg.RecordApproved {
		record := p.buildRecord(product, decision{stage: domain.StageBusinessScope}, elapsed, domain.VerdictPassed)
		if err := p.deps.Gateway.CreateRecord(ctx, record); err != nil {
			p.logger.Errorw("persist audit record failed", "product_id", id, "error", err)
		}
	}

	if err := p.deps.Catalog.Approve(ctx, product.ID); err != nil {
		p.logger.Errorw("approve product failed", "product_id", id, "error", err)
	}

	return outcomeContinue
}

func (p *Pipeline) auditText(ctx context.Context, product domain.Product, dec *decision) {
	content := product.AuditText()
	p.updateState(func(s *domain.AuditState) { s.TextRequest = content })

	verdict, err := p.deps.Moderator.TextModeration(ctx, content)
	p.updateState(func(s *domain.AuditState) { s.TextResponse = verdict.Raw })

	if err != nil {
		p.logger.Warnw("text moderation failed", "product_id", product.ID, "error", err)
		*dec = decision{rejected: true, stage: domain.StageText, reason: textRejectionReason, apiError: err.Error()}
		return
	}
	if !verdict.IsSafe {
		*dec = decision{rejected: true, stage: domain.StageText, reason: textRejectionReason}
	}
}

func (p *Pipeline) auditImages(ctx context.Context, product domain.Product, dec *decision) outcome {
	images := product.AuditImages()

	for i, imageURL := range images {
		if !p.running.Load() {
			return outcomeStopped
		}

		p.updateState(func(s *domain.AuditState) {
			s.ImageRequest = fmt.Sprintf("[%d/%d] %s", i+1, len(images), imageURL)
		})

		verdict, err := p.deps.Moderator.ImageModeration(ctx, imageURL)
		p.updateState(func(s *domain.AuditState) { s.ImageResponse = verdict.Raw })

		if err != nil {
			p.logger.Warnw("image moderation failed", "product_id", product.ID, "image", imageURL, "error", err)
			*dec = decision{rejected: true, stage: domain.StageImage, reason: imageRejectionReason, apiError: err.Error()}
			return outcomeContinue
		}

		if !verdict.IsSafe {
			reason := imageRejectionReason
			if label := verdict.FirstRiskLabel(); label != "" {
				reason = moderation.LabelDescription(label)
			}
			// Fail fast: later images are never checked.
			*dec = decision{rejected: true, stage: domain.StageImage, reason: reason}
			return outcomeContinue
		}

		if i < len(images)-1 {
			p.sleep(p.cfg.ImageDelay)
		}
	}

	return outcomeContinue
}

func (p *Pipeline) auditScope(ctx context.Context, product domain.Product, dec *decision) outcome {
	id := strconv.FormatInt(product.ID, 10)

	// Missing category or shop is not a violation; the stage is skipped.
	if product.CategoryName == "" {
		p.logger.Infow("product has no category, skipping scope audit", "product_id", id)
		return outcomeContinue
	}
	if product.ShopID == 0 {
		p.logger.Infow("product has no shop id, skipping scope audit", "product_id", id)
		return outcomeContinue
	}

	license, err := p.deps.Catalog.ShopLicense(ctx, product.ShopID)
	if err != nil {
		p.logger.Warnw("fetch shop detail failed, skipping scope audit", "product_id", id, "error", err)
		return outcomeContinue
	}
	if license == "" {
		p.logger.Infow("shop has no business license on file", "product_id", id, "shop_id", product.ShopID)
		return outcomeContinue
	}

	p.updateState(func(s *domain.AuditState) { s.ScopeRequest = "License: " + license })

	recognition, err := p.deps.License.RecognizeBusinessLicense(ctx, license)
	p.updateState(func(s *domain.AuditState) { s.ScopeResponse = recognition.Raw })

	if err != nil {
		if errors.Is(err, ocr.ErrScopeNotExtracted) {
			*dec = decision{
				rejected: true,
				stage:    domain.StageBusinessScope,
				reason:   "营业执照识别失败: " + err.Error(),
			}
			return outcomeContinue
		}

		// An unclassified OCR failure cannot be pinned on this product; it
		// may be a systemic outage, so the whole run halts for a human.
		p.logger.Errorw("unclassified ocr failure, halting run", "product_id", id, "error", err)
		p.setVerdict(domain.VerdictManualReview)
		return outcomeHalt
	}

	analysis, err := p.deps.Scope.AnalyzeBusinessScope(ctx, product.CategoryName, recognition.BusinessScope)
	p.updateState(func(s *domain.AuditState) { s.AIAnalysis = analysis.Raw })

	if err != nil {
		p.logger.Warnw("scope analysis failed", "product_id", id, "error", err)
		*dec = decision{
			rejected: true,
			stage:    domain.StageBusinessScope,
			reason:   "经营范围不符: " + err.Error(),
			apiError: err.Error(),
		}
		return outcomeContinue
	}

	if !analysis.Allowed {
		*dec = decision{
			rejected: true,
			stage:    domain.StageBusinessScope,
			reason:   "经营范围不符: " + analysis.Reason,
		}
	}

	return outcomeContinue
}

func (p *Pipeline) buildRecord(product domain.Product, dec decision, elapsedMs int64, verdict domain.Verdict) domain.AuditRecord {
	state := p.State()

	return domain.AuditRecord{
		ProductID:        state.ProductID,
		ProductTitle:     product.Title,
		ProductImage:     product.MainImage,
		SubmitTime:       time.Now(),
		AIProcessingTime: elapsedMs,
		AuditStage:       dec.stage,
		Verdict:          verdict,
		RejectionReason:  dec.reason,
		APIError:         dec.apiError,
		TextRequest:      state.TextRequest,
		TextResponse:     state.TextResponse,
		ImageRequest:     state.ImageRequest,
		ImageResponse:    state.ImageResponse,
		ScopeRequest:     state.ScopeRequest,
		ScopeResponse:    state.ScopeResponse,
		UserID:           p.cfg.UserID,
		Username:         p.cfg.Username,
		ManualStatus:     domain.ManualPending,
	}
}

func (p *Pipeline) resetState(product domain.Product) {
	images := product.AuditImages()
	image := product.MainImage
	if len(images) > 0 {
		image = images[0]
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	stats := p.state.Stats
	p.state = domain.AuditState{
		ProductID:    strconv.FormatInt(product.ID, 10),
		ProductTitle: product.Title,
		ProductImage: image,
		Stats:        stats,
	}
}

func (p *Pipeline) appendHistory(product domain.Product, verdict domain.Verdict, reason string) {
	p.history.Add(domain.HistoryEntry{
		ProductID:    strconv.FormatInt(product.ID, 10),
		ProductTitle: product.Title,
		ProductImage: product.MainImage,
		Status:       verdict,
		Reason:       reason,
		Timestamp:    time.Now(),
	})
	p.persist(p.running.Load())
}

func (p *Pipeline) updateState(fn func(*domain.AuditState)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.state)
}

func (p *Pipeline) setVerdict(v domain.Verdict) {
	p.updateState(func(s *domain.AuditState) { s.Verdict = v })
}

func (p *Pipeline) setStatus(status domain.RunStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

func (p *Pipeline) finish(status domain.RunStatus) {
	p.running.Store(false)
	p.setStatus(status)
	p.persist(false)
}

func (p *Pipeline) persist(running bool) {
	if p.store == nil {
		return
	}
	// A suspended run stays "running" on disk regardless of what the exiting
	// loop reports.
	if p.suspended.Load() {
		running = true
	}
	if err := p.store.Save(runstate.State{Running: running, History: p.history.Entries()}); err != nil {
		p.logger.Warnw("persist run state failed", "error", err)
	}
}

func (p *Pipeline) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-p.ctx.Done():
	case <-time.After(d):
	}
}
