package aggregates

import domainagg "github.com/yungbote/dealwatch-backend/internal/domain/aggregates"

type (
	ResolveDealInput    = domainagg.ResolveDealInput
	ResolveDealResult   = domainagg.ResolveDealResult
	RegisterAliasInput  = domainagg.RegisterAliasInput
	RegisterAliasResult = domainagg.RegisterAliasResult
)
