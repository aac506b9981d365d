package xtiered

import (
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// 分层
// =============================================================================

// Tier 缓存层
type Tier int

const (
	// TierBypass 不缓存
	TierBypass Tier = iota
	// TierPublic L1 公共列表
	TierPublic
	// TierUser L2 用户列表
	TierUser
	// TierSearch L3 搜索结果
	TierSearch
)

// cachedTiers 所有可缓存的层
var cachedTiers = [...]Tier{TierPublic, TierUser, TierSearch}

// String 返回层名称
func (t Tier) String() string {
	switch t {
	case TierBypass:
		return "bypass"
	case TierPublic:
		return "L1"
	case TierUser:
		return "L2"
	case TierSearch:
		return "L3"
	default:
		return "Tier(" + strconv.Itoa(int(t)) + ")"
	}
}

// Cached 报告该层是否可缓存
func (t Tier) Cached() bool {
	return t >= TierPublic && t <= TierSearch
}

// =============================================================================
// 查询参数
// =============================================================================

// TagMode 多标签的组合方式
type TagMode string

const (
	TagModeOR  TagMode = "OR"
	TagModeAND TagMode = "AND"
)

// ReadFilter 已读过滤
type ReadFilter string

const (
	ReadFilterAll    ReadFilter = "all"
	ReadFilterRead   ReadFilter = "read"
	ReadFilterUnread ReadFilter = "unread"
)

// DateRange 发布时间范围，零值端点表示不限
type DateRange struct {
	From time.Time
	To   time.Time
}

// QueryParams 文章列表查询参数。
//
// 路由器只读取参数，不修改调用方的值。
type QueryParams struct {
	Sources         []string
	Tags            []string
	TagMode         TagMode
	DateRange       DateRange
	Category        string
	Search          string
	UserID          string
	ReadFilter      ReadFilter
	IncludeUserData bool
	Page            int
	Limit           int
	// Extra 其他过滤字段，渲染为 x.{name}
	Extra map[string]string
}

// Classify 返回参数所属的缓存层
func Classify(p QueryParams) Tier {
	switch {
	case p.IncludeUserData:
		return TierBypass
	case p.UserID != "":
		return TierUser
	case strings.TrimSpace(p.Search) != "":
		return TierSearch
	default:
		return TierPublic
	}
}
