// Package domain models real-time district air-quality readings published by
// the Seoul Open Data Plaza.
//
// # Data Source
//
// Readings come from the ListAirQualityByDistrictService endpoint of the Seoul
// Open API (http://openapi.seoul.go.kr:8088). Each administrative district
// (gu) has its own endpoint path, and each response lists the monitoring
// stations in that district with their latest hourly measurement.
//
// # Source Conventions
//
// Column names are upper-case abbreviations kept verbatim in RawReading:
//
//	MSRDATE     measurement time, "YYYYMMDDHHMM" (not parsed, stored as-is)
//	MSRADMCODE  district administrative code, e.g. "111123"
//	MSRSTENAME  station name, unique across the city
//	GRADE       overall integrated air-quality grade as published
//	CARBON      carbon monoxide, ppm
//	PM10        particulate matter under 10µm, µg/m³
//
// Concentrations are strings. Stations under maintenance report values such
// as "점검중" or an empty element instead of a number.
//
// # Grades
//
// CO and PM10 are each classified into three tiers:
//
//	CO   (ppm):    < 4.5 good,  < 9.5 moderate,  else poor
//	PM10 (µg/m³):  < 15.1 good, < 35.1 moderate, else poor
//
// Values that do not parse as numbers are graded "unparseable".
package domain
