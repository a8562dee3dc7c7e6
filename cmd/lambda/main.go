package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"tra-backend/infrastructure/di"
)

func main() {
	ctx := context.Background()

	container, err := di.InitializeContainer(ctx)
	if err != nil {
		panic("failed to initialize application: " + err.Error())
	}
	defer container.Shutdown()

	adapter := httpadapter.NewV2(container.Router)
	lambda.Start(func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
