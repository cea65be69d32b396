package ssl

import (
	"net"
	"strconv"

	"StoreSupport/pkg/zlog"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// TlsHandler 强制 HTTPS；webhook 回调与前台组件都走同一个入口
func TlsHandler(host string, port int) gin.HandlerFunc {
	sslHost := host
	if port > 0 && port != 443 {
		sslHost = net.JoinHostPort(host, strconv.Itoa(port))
	}
	secureMiddleware := secure.New(secure.Options{
		SSLRedirect:          true,
		SSLHost:              sslHost,
		SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
		STSSeconds:           31536000,
		STSIncludeSubdomains: true,
		FrameDeny:            true,
		ContentTypeNosniff:   true,
	})
	return func(c *gin.Context) {
		// 重定向时 secure 已写入响应
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			zlog.Debug("tls redirect", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Abort()
			return
		}
		if status := c.Writer.Status(); status > 300 && status < 399 {
			c.Abort()
			return
		}
		c.Next()
	}
}
