package port

import (
	"time"

	"cointrack/internal/domain/model"
)

type Sink interface {
	// Live 行: 覆盖当前行（不换行）
	WriteLive(line string) error
	// 快照行: 追加带时间戳的历史行，并留空行给后续 live 刷新
	WriteSnapshot(ts time.Time, line string) error
	// 告警行: 打印在 live 行上方
	WriteAlert(alert model.TriggeredAlert) error
	// 普通换行（日志用）
	NewLine() error
}
