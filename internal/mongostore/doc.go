// Package mongostore — реестр в MongoDB.
//
// База по умолчанию "exosphere", коллекции "schedulers" и "jobs".
// Документы хранятся в camelCase (hostname, schedulerName, lastCheckedIn,
// jobName, lastReportDate), так что каталог jobs можно вести
// существующими инструментами.
//
// Владелец *mongo.Client — вызывающий: Store его не закрывает.
package mongostore
