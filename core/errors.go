package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 推荐链路的错误分两类：
//   - 本地可恢复错误（INSUFFICIENT_DATA / NO_SIGNAL / COOLDOWN_ACTIVE）：
//     调用方降级为"不变更，返回已有推荐集"
//   - 需要上抛的错误（REFRESH_FAILED / LOOKUP_FAILURE）：
//     刷新失败可重试；读路径的查询失败没有兜底数据，必须上抛
type DomainError struct {
	Code    string // 错误代码（如 "INSUFFICIENT_DATA", "COOLDOWN_ACTIVE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "feature", "knn"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 存储/基础设施错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐链路错误代码
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 收藏/特征行不足，无法构建兴趣向量
	ErrorCodeNoSignal         = "NO_SIGNAL"         // 自适应检索穷举所有 k 仍不满足候选阈值
	ErrorCodeCooldownActive   = "COOLDOWN_ACTIVE"   // 距上次刷新过近，本次刷新被拒绝
	ErrorCodeRefreshFailed    = "REFRESH_FAILED"    // 推荐集替换事务失败，旧数据保持权威
	ErrorCodeLookupFailure    = "LOOKUP_FAILURE"    // 外部存储查询失败（超时/断连）
)

// 模块名称常量
const (
	ModuleStore   = "store"   // 存储模块
	ModuleFeature = "feature" // 特征模块
	ModuleKNN     = "knn"     // 近邻索引模块
	ModuleRecall  = "recall"  // 召回模块
	ModuleService = "service" // 推荐服务模块
)

func codeIs(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return codeIs(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return codeIs(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return codeIs(err, ErrorCodeUnavailable)
}

// IsInsufficientData 检查错误是否为 INSUFFICIENT_DATA
func IsInsufficientData(err error) bool {
	return codeIs(err, ErrorCodeInsufficientData)
}

// IsNoSignal 检查错误是否为 NO_SIGNAL
func IsNoSignal(err error) bool {
	return codeIs(err, ErrorCodeNoSignal)
}

// IsCooldownActive 检查错误是否为 COOLDOWN_ACTIVE
func IsCooldownActive(err error) bool {
	return codeIs(err, ErrorCodeCooldownActive)
}

// IsRefreshFailed 检查错误是否为 REFRESH_FAILED
func IsRefreshFailed(err error) bool {
	return codeIs(err, ErrorCodeRefreshFailed)
}

// IsLookupFailure 检查错误是否为 LOOKUP_FAILURE
func IsLookupFailure(err error) bool {
	return codeIs(err, ErrorCodeLookupFailure)
}

// IsRecoverable 检查错误是否为本地可恢复错误。
// 可恢复错误的统一降级策略：不变更已有推荐集，返回当前持久化结果。
func IsRecoverable(err error) bool {
	return IsInsufficientData(err) || IsNoSignal(err) || IsCooldownActive(err)
}
