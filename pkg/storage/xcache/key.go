package xcache

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultMaxKeyLength 默认最大键长度
const DefaultMaxKeyLength = 250

// hashSuffixLen 为 "#" 加 16 位十六进制哈希
const hashSuffixLen = 17

// Params 键参数，字段名到值的映射。
//
// 值为 nil（包括 nil 指针与 nil 切片）时该字段被忽略；
// 非 nil 的空切片渲染为 "field="，与字段缺失不同。
type Params map[string]any

type keyOptions struct {
	prefix    string
	params    Params
	maxLength int
}

// KeyOption 定义 GenerateKey 的配置函数
type KeyOption func(*keyOptions)

// WithPrefix 设置键前缀，布局为 prefix:baseKey
func WithPrefix(prefix string) KeyOption {
	return func(o *keyOptions) {
		o.prefix = prefix
	}
}

// WithParams 设置键参数。多次调用时合并，后者覆盖同名字段。
func WithParams(p Params) KeyOption {
	return func(o *keyOptions) {
		if len(p) == 0 {
			return
		}
		if o.params == nil {
			o.params = make(Params, len(p))
		}
		for k, v := range p {
			o.params[k] = v
		}
	}
}

// WithKeyMaxLength 设置最大键长度，默认 DefaultMaxKeyLength，<= 0 表示不限制
func WithKeyMaxLength(n int) KeyOption {
	return func(o *keyOptions) {
		o.maxLength = n
	}
}

// GenerateKey 生成确定性的缓存键。
//
// 布局为 [prefix:]baseKey[:pairs]，pairs 为按字段名排序的 field=value，以 '&' 连接。
// 切片值的元素排序后以 ',' 连接，因此 sources=[zenn qiita] 与 sources=[qiita zenn] 得到相同的键。
// 字段名、值与切片元素均经过查询串转义，值中的 '&'、'='、','、':' 不会与分隔符混淆。
// prefix 与 baseKey 原样写入，由调用方保证其中不含用户输入的分隔符。
// 没有前缀且没有参数时返回 baseKey 本身。
func GenerateKey(baseKey string, opts ...KeyOption) string {
	o := keyOptions{maxLength: DefaultMaxKeyLength}
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	if o.prefix != "" {
		b.WriteString(o.prefix)
		b.WriteByte(':')
	}
	b.WriteString(baseKey)
	if pairs := renderParams(o.params); pairs != "" {
		b.WriteByte(':')
		b.WriteString(pairs)
	}
	return shortenKey(b.String(), o.maxLength)
}

// shortenKey 将超长键的尾部替换为 "#" + xxhash64(完整键)。
//
// 最后一个 ':' 及其之前的部分（命名空间与前缀）始终保留，按前缀匹配的批量删除因此不受截断影响。
// 该部分本身过长时结果会超过 maxLength。
func shortenKey(key string, maxLength int) string {
	if maxLength <= 0 || len(key) <= maxLength {
		return key
	}
	keep := max(maxLength-hashSuffixLen, strings.LastIndexByte(key, ':')+1, 0)
	if keep+hashSuffixLen >= len(key) {
		return key
	}
	return fmt.Sprintf("%s#%016x", key[:keep], xxhash.Sum64String(key))
}

func renderParams(p Params) string {
	if len(p) == 0 {
		return ""
	}
	fields := make([]string, 0, len(p))
	for k := range p {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var b strings.Builder
	for _, f := range fields {
		v, ok := renderValue(p[f])
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f))
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

// renderValue 渲染参数值，返回 false 表示该字段应被忽略。
// 标量在此转义，切片元素逐个转义后再排序连接。
func renderValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return url.QueryEscape(x), true
	case []string:
		if x == nil {
			return "", false
		}
		elems := make([]string, len(x))
		for i, e := range x {
			elems[i] = url.QueryEscape(e)
		}
		return joinSorted(elems), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case time.Time:
		return url.QueryEscape(x.UTC().Format(time.RFC3339Nano)), true
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", false
		}
		return url.QueryEscape(x.String()), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", false
		}
		return renderValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "", false
		}
		fallthrough
	case reflect.Array:
		elems := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s, ok := renderValue(rv.Index(i).Interface())
			if ok {
				elems = append(elems, s)
			}
		}
		return joinSorted(elems), true
	default:
		return url.QueryEscape(fmt.Sprint(v)), true
	}
}

func joinSorted(elems []string) string {
	sort.Strings(elems)
	return strings.Join(elems, ",")
}
