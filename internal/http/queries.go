package http

// GraphQL documents sent to the upstream API. The schema is owned by the
// upstream; these mirror the operations it exposes.

const mutationSignIn = `
mutation SignIn($email: String!, $password: String!) {
  signIn(input: { email: $email, password: $password }) {
    user { id email name }
    membership { id role tenant { id name subdomain } }
    tokens { accessToken refreshToken }
    subdomainUrl
    schoolUrl
  }
}`

const mutationSignUp = `
mutation SignUp($name: String!, $email: String!, $password: String!, $schoolName: String) {
  signUp(input: { name: $name, email: $email, password: $password, schoolName: $schoolName }) {
    user { id email name }
    membership { id role tenant { id name subdomain } }
    tokens { accessToken refreshToken }
    subdomainUrl
    schoolUrl
  }
}`

const mutationAcceptInvitation = `
mutation AcceptTeacherInvitation($token: String!, $name: String!, $password: String!) {
  acceptTeacherInvitation(input: { token: $token, name: $name, password: $password }) {
    user { id email name }
    membership { id role tenant { id name subdomain } }
    tokens { accessToken refreshToken }
    subdomainUrl
    schoolUrl
  }
}`

const mutationRefreshTokens = `
mutation RefreshTokens($refreshToken: String!) {
  refreshTokens(refreshToken: $refreshToken) {
    accessToken
    refreshToken
  }
}`

const queryMe = `
query Me {
  me {
    id
    email
    name
    memberships { id role tenant { id name subdomain } }
  }
}`

const queryStudentsByTenant = `
query StudentsByTenant($tenantId: ID!) {
  studentsByTenant(tenantId: $tenantId) {
    id
    name
    admissionNumber
    gender
    grade { id name }
    phone
  }
}`

const mutationCreateStudent = `
mutation CreateStudent($input: CreateStudentInput!) {
  createStudent(input: $input) {
    id
    name
    admissionNumber
    gender
    grade { id name }
  }
}`

const queryUsersByTenant = `
query UsersByTenant($tenantId: ID!) {
  usersByTenant(tenantId: $tenantId) {
    id
    name
    email
    role
    status
  }
}`

const mutationInviteTeacher = `
mutation InviteTeacher($input: InviteUserInput!) {
  inviteTeacher(input: $input) {
    id
    email
    role
    status
    createdAt
  }
}`

const queryPendingInvitations = `
query PendingInvitations($tenantId: ID!) {
  pendingInvitations(tenantId: $tenantId) {
    id
    email
    role
    createdAt
  }
}`

const mutationRevokeInvitation = `
mutation RevokeInvitation($invitationId: ID!) {
  revokeInvitation(invitationId: $invitationId) {
    id
    status
  }
}`

const queryAcademicYears = `
query AcademicYearsByTenant($tenantId: ID!) {
  academicYearsByTenant(tenantId: $tenantId) {
    id
    name
    startDate
    endDate
    terms { id name startDate endDate }
  }
}`

const queryFeeBuckets = `
query FeeBucketsByTenant($tenantId: ID!) {
  feeBucketsByTenant(tenantId: $tenantId) {
    id
    name
    description
    amounts { gradeId amount }
  }
}`

const mutationCreateFeeStructure = `
mutation CreateFeeStructure($input: CreateFeeStructureInput!) {
  createFeeStructure(input: $input) {
    id
    name
    academicYear { id name }
    items { bucketId amount }
  }
}`

const queryTimetableEntries = `
query TimetableEntriesByTenant($tenantId: ID!) {
  timetableEntriesByTenant(tenantId: $tenantId) {
    id
    dayOfWeek
    startTime
    endTime
    subject { id name }
    teacher { id name }
    grade { id name }
  }
}`

const mutationCreateTimetableEntry = `
mutation CreateTimetableEntry($input: CreateTimetableEntryInput!) {
  createTimetableEntry(input: $input) {
    id
    dayOfWeek
    startTime
    endTime
    subject { id name }
    teacher { id name }
    grade { id name }
  }
}`

const mutationConfigureSchool = `
mutation ConfigureSchool($input: ConfigureSchoolInput!) {
  configureSchool(input: $input) {
    id
    name
    subdomain
    configured
  }
}`
