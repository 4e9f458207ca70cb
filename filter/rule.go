package filter

import (
	"context"

	"github.com/rushteam/movierec/core"
	"github.com/rushteam/movierec/pkg/dsl"
)

// RuleFilter 是表达式驱动的过滤器：用 CEL 表达式声明"什么候选该被过滤"。
// 运营/实验侧可以通过配置下发规则，无需改代码发版。
//
// 示例：
//   - `item.id < 1000`：过滤老片库的候选
//   - `label.recall_source == "similar_users" && item.score < 0.1`
type RuleFilter struct {
	// Expr CEL 表达式；求值为 true 的候选将被过滤。空表达式不过滤任何候选。
	Expr string
}

// NewRuleFilter 创建一个表达式过滤器。
func NewRuleFilter(expr string) *RuleFilter {
	return &RuleFilter{Expr: expr}
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}

	ok, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return ok, nil
}
