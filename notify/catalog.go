package notify

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Key identifies a catalog message.
type Key string

const (
	MsgSessionExpired      Key = "session_expired"
	MsgNotAuthorized       Key = "not_authorized"
	MsgInvalidParameters   Key = "invalid_parameters"
	MsgServerError         Key = "server_error"
	MsgNetworkError        Key = "network_error"
	MsgLoginFailed         Key = "login_failed"
	MsgLoginSucceeded      Key = "login_succeeded"
	MsgLoggedOut           Key = "logged_out"
	MsgNotLoggedIn         Key = "not_logged_in"
	MsgCredentialsRequired Key = "credentials_required"
	MsgPageNotFound        Key = "page_not_found"
)

var translations = map[language.Tag]map[Key]string{
	language.English: {
		MsgSessionExpired:      "Your session has expired, please log in again",
		MsgNotAuthorized:       "You are not authorized to perform this action",
		MsgInvalidParameters:   "Invalid request parameters",
		MsgServerError:         "Server error",
		MsgNetworkError:        "Network error, please check your connection",
		MsgLoginFailed:         "Login failed",
		MsgLoginSucceeded:      "Logged in",
		MsgLoggedOut:           "Logged out",
		MsgNotLoggedIn:         "Not logged in",
		MsgCredentialsRequired: "Username and password are required",
		MsgPageNotFound:        "Page not found",
	},
	language.SimplifiedChinese: {
		MsgSessionExpired:      "登录已过期，请重新登录",
		MsgNotAuthorized:       "没有权限执行此操作",
		MsgInvalidParameters:   "请求参数错误",
		MsgServerError:         "服务器错误",
		MsgNetworkError:        "网络错误，请检查网络连接",
		MsgLoginFailed:         "登录失败",
		MsgLoginSucceeded:      "登录成功",
		MsgLoggedOut:           "已退出登录",
		MsgNotLoggedIn:         "未登录",
		MsgCredentialsRequired: "用户名和密码不能为空",
		MsgPageNotFound:        "页面不存在",
	},
}

var supported = []language.Tag{language.English, language.SimplifiedChinese}

var matcher = language.NewMatcher(supported)

// Catalog renders message keys in one language.
type Catalog struct {
	tag     language.Tag
	printer *message.Printer
}

var builtin = mustBuildCatalog(translations)

func buildCatalog(entries map[language.Tag]map[Key]string) (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range entries {
		for key, text := range msgs {
			if err := b.SetString(tag, string(key), text); err != nil {
				return nil, fmt.Errorf("catalog %s/%s: %w", tag, key, err)
			}
		}
	}
	return b, nil
}

func mustBuildCatalog(entries map[language.Tag]map[Key]string) *catalog.Builder {
	b, err := buildCatalog(entries)
	if err != nil {
		panic(err)
	}
	return b
}

// NewCatalog returns a catalog for the closest supported language to lang;
// English is the fallback.
func NewCatalog(lang language.Tag) *Catalog {
	_, idx, _ := matcher.Match(lang)
	tag := supported[idx]
	return &Catalog{tag: tag, printer: message.NewPrinter(tag, message.Catalog(builtin))}
}

// ParseLanguage maps a config value such as "zh", "zh-CN" or "en" to a tag.
// Unknown values fall back to English.
func ParseLanguage(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}

// Language returns the matched catalog language.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Text renders key. Unknown keys render as the key itself.
func (c *Catalog) Text(key Key) string {
	return c.printer.Sprintf(string(key))
}
