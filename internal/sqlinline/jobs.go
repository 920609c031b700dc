package sqlinline

// Worker-side job queries. Every constant starts with a --sql marker line so
// the SQLRunner can correlate log lines with the statement that produced them.

const QClaimJob = `--sql 8e9f07d1-2077-487c-be14-ce7b9216688c
with next_job as (
    select id
    from report_jobs
    where stage = 'pending'
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update report_jobs
    set stage = 'processing', progress = 15, updated_at = now()
    where id in (select id from next_job)
    returning id, company_id, locale
)
select id, company_id, locale from claimed;
`

// QAdvanceStage refuses terminal rows and any move that would lower
// progress; checkpoints increase strictly along the stage order, so the
// progress guard doubles as the stage-rank guard.
const QAdvanceStage = `--sql 3dfac3a5-e9ac-432f-8f5e-f923ea96cb1b
update report_jobs
set stage = $2, progress = $3, updated_at = now()
where id = $1
  and stage not in ('completed', 'failed')
  and progress < $3;
`

const QCompleteJob = `--sql 51bf870a-cd99-4404-ac2d-6162989e7726
update report_jobs
set stage = 'completed', progress = 100, result_key = $2, updated_at = now()
where id = $1 and stage not in ('completed', 'failed');
`

const QFailJob = `--sql 2aeb3fe0-f6ae-4487-9f40-3ae6d0862e45
update report_jobs
set stage = 'failed', error_message = $2, updated_at = now()
where id = $1 and stage not in ('completed', 'failed');
`

// QNotifyStatus publishes a status payload on the channel the api process
// listens on. pg_notify is used instead of NOTIFY so the payload can be a
// bind parameter.
const QNotifyStatus = `--sql a1aad74a-5591-4c04-88dd-60243c876b2b
select pg_notify('report_job_status', $1);
`

const QGetCompanyForReport = `--sql 78daf2a6-55f4-43d7-8577-155b4f3bb032
select id, name, sector, summary, metrics, updated_at
from companies
where id = $1;
`
