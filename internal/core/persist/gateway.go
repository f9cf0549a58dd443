package persist

import (
	"context"
	"errors"
	"fmt"

	"recipe-aggregator/internal/core/recipe"
	"recipe-aggregator/internal/core/translate"
	"recipe-aggregator/internal/infrastructure/metrics"
	"recipe-aggregator/internal/pkg/common"

	"go.uber.org/zap"
)

var ErrMissingExternalID = errors.New("external recipe without external id")

// Writer 以 (source, external_id) 唯一索引寫入；衝突時回傳既有的 id
type Writer interface {
	InsertIfAbsent(ctx context.Context, r recipe.Recipe) (id int64, inserted bool, err error)
}

// Gateway 決定外部來源的食譜是否寫入本地資料庫
type Gateway struct {
	store      Writer
	translator *translate.Translator
	metrics    *metrics.Metrics
}

// NewGateway 創建持久化閘道
func NewGateway(store Writer, translator *translate.Translator, m *metrics.Metrics) *Gateway {
	return &Gateway{store: store, translator: translator, metrics: m}
}

// MaybePersist 只處理目錄與 AI 來源的食譜；已有 id 的直接回傳，本地食譜回傳 0
func (g *Gateway) MaybePersist(ctx context.Context, r recipe.Recipe) (int64, error) {
	if r.ID != 0 {
		return r.ID, nil
	}
	if !r.Source.External() {
		g.metrics.Persisted("skipped")
		return 0, nil
	}
	if r.ExternalID == "" {
		g.metrics.Persisted("failed")
		return 0, ErrMissingExternalID
	}

	// 仍是目錄原文時先翻成工作語再寫入
	if g.translator != nil && translate.RecipeLooksLikeSourceLanguage(r) {
		r = g.translator.TranslateRecipe(r)
	}

	id, inserted, err := g.store.InsertIfAbsent(ctx, r)
	if err != nil {
		g.metrics.Persisted("failed")
		return 0, fmt.Errorf("failed to persist %s: %w", r.ExternalID, err)
	}

	if inserted {
		g.metrics.Persisted("inserted")
		common.LogInfo("外部食譜已寫入",
			zap.Int64("id", id),
			zap.String("source", string(r.Source)),
			zap.String("external_id", r.ExternalID),
		)
	} else {
		g.metrics.Persisted("existing")
		common.LogDebug("外部食譜已存在", zap.Int64("id", id), zap.String("external_id", r.ExternalID))
	}
	return id, nil
}
