package service

import (
	"context"
)

// sagaStep 预占流程中的一步：正向动作及其补偿
type sagaStep struct {
	name       string
	forward    func(ctx context.Context) error
	compensate func(ctx context.Context) error
}

// compensationFailure 补偿失败记录
type compensationFailure struct {
	step string
	err  error
}

// saga 顺序执行步骤，任一步失败时按逆序补偿此前已成功的步骤
type saga struct {
	// compensable 为空时所有失败都补偿；返回 false 时跳过补偿，交由外层事务回滚
	compensable func(err error) bool
	completed   []sagaStep
	failures    []compensationFailure
	// skipped 跳过补偿的步骤数
	skipped int
}

// run 执行单步；失败时先补偿已完成步骤再返回原错误
func (s *saga) run(ctx context.Context, step sagaStep) error {
	if err := step.forward(ctx); err != nil {
		if s.compensable != nil && !s.compensable(err) {
			s.skipped = len(s.completed)
			s.completed = nil
			return err
		}
		s.rollback(ctx)
		return err
	}
	s.completed = append(s.completed, step)
	return nil
}

// rollback 逆序执行补偿；补偿失败不重试，记录在 failures 中由调用方处理
func (s *saga) rollback(ctx context.Context) {
	for i := len(s.completed) - 1; i >= 0; i-- {
		step := s.completed[i]
		if step.compensate == nil {
			continue
		}
		if err := step.compensate(ctx); err != nil {
			s.failures = append(s.failures, compensationFailure{step: step.name, err: err})
		}
	}
	s.completed = nil
}
