package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/score --output domain/score --outpkg scoremock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name MatchProvider --dir ../usecase --output usecase --outpkg usecasemock --filename match_provider_mock.go
