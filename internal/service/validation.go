package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 请求结构体用 binding 标签声明字段规则; handler 绑定和 service 校验共用 gin 的校验器
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	// 字段路径使用json名, 例如 references[0].date
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	// 单行文本: 不允许换行等控制字符 (会被拼进邮件头)
	if err := v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
	}); err != nil {
		panic(err)
	}
}

// validateStruct 对结构体执行 binding 标签规则, 字段错误转换为 *ValidationError
func validateStruct(obj any) error {
	err := binding.Validator.ValidateStruct(obj)
	if err == nil {
		return nil
	}
	if verr := FieldErrors(err); verr != nil {
		return verr
	}
	return err
}

// FieldErrors 把 validator.ValidationErrors 转成 *ValidationError; 其他错误返回nil
func FieldErrors(err error) *ValidationError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	verr := &ValidationError{}
	for _, fe := range ves {
		verr.Add(fieldPath(fe.Namespace()), fieldMessage(fe))
	}
	return verr
}

// 去掉命名空间开头的结构体名
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice", fmt.Sprint(fe.Value()))
	case "datetime":
		return "date must be YYYY-MM-DD"
	case "max":
		return fmt.Sprintf("ensure this field has no more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("ensure this field has at least %s characters", fe.Param())
	case "email":
		return "enter a valid email address"
	case "singleline":
		return "control characters such as line breaks are not allowed"
	default:
		return fe.Error()
	}
}
