package myjwt

import (
	"errors"
	"time"

	"StoreSupport/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims 坐席身份，OrgId 决定可访问的组织数据
type CustomClaims struct {
	AgentId string `json:"agent_id"`
	OrgId   string `json:"org_id"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

func GenerateToken(agentID, orgID, name string) (string, error) {
	return GenerateTokenWith(config.GetConfig().JwtConfig, config.GetConfig().AppName, agentID, orgID, name)
}

// GenerateTokenWith 显式传入配置，供测试与运维脚本使用
func GenerateTokenWith(jc config.JwtConfig, appName, agentID, orgID, name string) (string, error) {
	if jc.Key == "" {
		return "", errors.New("jwt key is empty")
	}

	expireHours := jc.ExpireHours
	if expireHours <= 0 {
		expireHours = 24
	}

	issuer := jc.Issuer
	if issuer == "" {
		issuer = appName
	}

	claims := CustomClaims{
		AgentId: agentID,
		OrgId:   orgID,
		Name:    name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expireHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jc.Key))
}

func ParseToken(tokenString string) (*CustomClaims, error) {
	return ParseTokenWith(config.GetConfig().JwtConfig.Key, tokenString)
}

func ParseTokenWith(key, tokenString string) (*CustomClaims, error) {
	if key == "" {
		return nil, errors.New("jwt key is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.OrgId == "" {
		return nil, errors.New("token has no organization")
	}
	return claims, nil
}
