// Command seiir computes beta scaling parameters and postprocessed measure
// tables for SEIIR forecast versions.
//
// Common invocations:
//
//	seiir forecast prepare --specification forecast.yaml
//	seiir check --forecast-version /data/forecast/2020_06_02
//	seiir beta-scaling --forecast-version /data/forecast/2020_06_02 --scenario reference
//	seiir postprocess --forecast-version /data/forecast/2020_06_02
//	seiir runs --limit 10
package main
