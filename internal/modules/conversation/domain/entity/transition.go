package entity

// NextStatus 会话状态迁移表，返回目标状态以及是否发生变化
//
//	active    -> escalated  任意参与方
//	active    -> resolved   仅人工
//	escalated -> resolved   仅人工
//	resolved  -> active     仅客户（重新打开）
//
// 其余请求一律视为无操作，escalated 永远不会被引擎改回 active。
func NextStatus(current, target, actor string) (string, bool) {
	if current == target {
		return current, false
	}
	switch target {
	case SessionStatusEscalated:
		if current == SessionStatusActive {
			return target, true
		}
	case SessionStatusResolved:
		if actor == ActorHuman && (current == SessionStatusActive || current == SessionStatusEscalated) {
			return target, true
		}
	case SessionStatusActive:
		if actor == ActorCustomer && current == SessionStatusResolved {
			return target, true
		}
	}
	return current, false
}
