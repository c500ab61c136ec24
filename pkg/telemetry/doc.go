// Package telemetry provides logging, tracing, metrics and change events for
// the clinic record store.
//
// It combines structured logging (zerolog), tracing (OpenTelemetry) and
// metrics (Prometheus) with a small in-process event publisher for record
// changes.
//
// # Usage
//
// Initialize telemetry at startup and attach it to the context passed to the
// store:
//
//	tel, err := telemetry.NewTelemetry(telemetry.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//	patients, err := store.ListPatients(ctx)
//
// Every store call made with that context runs inside a span named
// store.<entity>.<operation> and is counted in
// clinicdesk_store_operations_total{entity,operation,result}, where result is
// "ok" or the store error class. Without telemetry in the context the store
// runs uninstrumented and logs through the global zerolog logger.
//
// # Metrics
//
//   - clinicdesk_store_operations_total{entity,operation,result}
//   - clinicdesk_store_operation_duration_seconds{entity,operation}
//   - clinicdesk_schema_columns_added_total{table,column}
//   - clinicdesk_demo_rows_purged_total{table}
//   - clinicdesk_events_published_total{type}
//
// # Events
//
// Creates, updates and deletes publish record.created, record.updated and
// record.deleted events. The startup purge publishes demo.purged per table
// when it removed rows. Delivery is synchronous unless Events.EnableAsync is
// set:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Type, e.Entity, e.RecordID)
//	}, telemetry.FilterByEntity("patients"))
//
// # Exporters
//
// Tracing supports "stdout" (development), "otlp" (OTLP over gRPC, needs
// Tracing.Endpoint) and "none", which samples spans without exporting them.
package telemetry
