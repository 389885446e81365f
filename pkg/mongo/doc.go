// Package mongo manages the MongoDB client: environment-driven configuration,
// connect-with-retry, and a health check closure.
//
// Configuration comes entirely from environment variables so credentials stay
// out of config files. Connect retries are aggressive enough to ride out
// transient Atlas hiccups during startup.
//
//	client, err := mongo.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Disconnect(ctx)
//
//	db := client.Database("lumeo")
package mongo
