package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 认证相关错误。
var (
	Unauthorized  = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	SessionStale  = Definition{Code: "SESSION_STALE", Message: "Session expired or revoked"}
	InvalidUserID = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
)

// 档案模块错误。
var (
	ProfileNotFound        = Definition{Code: "PROFILE_NOT_FOUND", Message: "Profile not found"}
	RegistrationDateLocked = Definition{Code: "REGISTRATION_DATE_LOCKED", Message: "Registration date is immutable"}
	SubscriptionRequired   = Definition{Code: "SUBSCRIPTION_REQUIRED", Message: "Trial expired, subscription required"}
	BirthdayInvalid        = Definition{Code: "BIRTHDAY_INVALID", Message: "Birthday must be YYYY-MM-DD"}
)

// Work 模块错误。
var (
	WorkNotFound     = Definition{Code: "WORK_NOT_FOUND", Message: "Work not found"}
	WorkNameRequired = Definition{Code: "WORK_NAME_REQUIRED", Message: "Work name required"}
	SkipKindInvalid  = Definition{Code: "SKIP_KIND_INVALID", Message: "Skip directive kind invalid"}
)

// 成就模块错误。
var (
	AchievementNotFound    = Definition{Code: "ACHIEVEMENT_NOT_FOUND", Message: "Achievement not found"}
	AchievementDateInvalid = Definition{Code: "ACHIEVEMENT_DATE_INVALID", Message: "Achievement date must be YYYY-MM-DD"}
	AchievementDateLocked  = Definition{Code: "ACHIEVEMENT_DATE_LOCKED", Message: "Achievement date is immutable"}
)

// 生命周期信号错误。
var (
	LifecycleSignalInvalid = Definition{Code: "LIFECYCLE_SIGNAL_INVALID", Message: "Lifecycle signal invalid"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	Unauthorized.Code:           Unauthorized,
	SessionStale.Code:           SessionStale,
	InvalidUserID.Code:          InvalidUserID,
	ProfileNotFound.Code:        ProfileNotFound,
	RegistrationDateLocked.Code: RegistrationDateLocked,
	SubscriptionRequired.Code:   SubscriptionRequired,
	BirthdayInvalid.Code:        BirthdayInvalid,
	WorkNotFound.Code:           WorkNotFound,
	WorkNameRequired.Code:       WorkNameRequired,
	SkipKindInvalid.Code:        SkipKindInvalid,
	AchievementNotFound.Code:    AchievementNotFound,
	AchievementDateInvalid.Code: AchievementDateInvalid,
	AchievementDateLocked.Code:  AchievementDateLocked,
	LifecycleSignalInvalid.Code: LifecycleSignalInvalid,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
