package usecase

import (
	"context"
	"log"
	"time"

	"storebackend/internal/domain/model"
	repo "storebackend/internal/repository"
)

// CleanupUsecase は期限切れPENDINGチェックアウトの掃除ジョブ。
type CleanupUsecase struct {
	tx        repo.TransactionManager
	checkouts repo.CheckoutRepository
	batchSize int
}

func NewCleanupUsecase(tx repo.TransactionManager, checkouts repo.CheckoutRepository) *CleanupUsecase {
	return &CleanupUsecase{
		tx:        tx,
		checkouts: checkouts,
		batchSize: 100,
	}
}

// SweepExpiredCheckouts は expires_at < now のPENDINGをEXPIREDにして在庫を戻す。
// 1件ずつ別トランザクションで処理する。途中で1件失敗しても残りは続ける。
// 戻り値は実際に期限切れにした件数。
//
// 条件付きUPDATEにガードされているので、掃除中にユーザーが
// complete/cancelした行はそのままスキップされる（在庫の二重返却なし）。
func (u *CleanupUsecase) SweepExpiredCheckouts(ctx context.Context, now time.Time) (int, error) {
	expired, err := u.checkouts.ListExpiredPending(ctx, now, u.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, c := range expired {
		checkoutID := c.ID
		won := false
		err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			won = false
			w, err := r.Checkouts().UpdateStatusIfPending(ctx, checkoutID, model.CheckoutStatusExpired)
			if err != nil {
				return err
			}
			if !w {
				//リスト取得後にユーザーが終端化済み
				return nil
			}
			if err := releaseCheckoutStock(ctx, r, checkoutID); err != nil {
				return err
			}
			won = true
			return nil
		})
		if err != nil {
			log.Printf("sweep: checkout %d failed: %v", checkoutID, err)
			continue
		}
		//commitまで通ってから数える
		if won {
			processed++
		}
	}
	return processed, nil
}
