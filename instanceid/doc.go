// Package instanceid provides a client for the Google Instance ID server API.
//
// The client covers the topic management endpoints: subscribing registration
// tokens to a topic, unsubscribing them, and looking up the details of a
// single token.
//
// # Usage
//
//	logger := zerolog.New(os.Stderr)
//	client, err := instanceid.NewClient(
//		"your-server-key",
//		logger,
//		instanceid.WithTimeout(10*time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := client.AddTopic(ctx, []string{"token-1", "token-2"}, "/topics/news")
//	if err != nil {
//		log.Fatal(err) // transport failure
//	}
//	if !res.OK() {
//		// the whole batch was rejected, see res.StatusCode
//	}
//	for _, e := range res.Errors {
//		fmt.Println(e.RegistrationToken, e.Error)
//	}
//
// # Error Handling
//
// Only construction problems (ErrInvalidConfig) and transport failures are
// returned as errors. A rejected batch comes back as a RelationshipResult
// carrying the status code, and GetInfo returns nil for any non-200 status.
//
// Per-item failures inside an accepted batch are listed in
// RelationshipResult.Errors, each paired with the token at the same position
// in the request.
package instanceid
